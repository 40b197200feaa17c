package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"html"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
)

// codeAlphabet leaves out O, 0, 1 and I.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var (
	ErrInviteInvalid  = errors.New("invitation code is invalid or does not match this email")
	ErrInviteUsed     = errors.New("invitation code has already been used")
	ErrInviteInactive = errors.New("invitation code is no longer active")
	ErrInviteExpired  = errors.New("invitation code has expired")
	ErrInvalidRole    = errors.New("user type must be student or instructor")
)

type InviteStore interface {
	CreateInvite(ctx context.Context, inv *models.Invite) error
	ListInvites(ctx context.Context) ([]models.Invite, error)
	FindInviteByCode(ctx context.Context, code string) (*models.Invite, error)
	SetInviteActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteInvite(ctx context.Context, id uuid.UUID) error
	RedeemInvite(ctx context.Context, inviteID uuid.UUID, person *models.Person, usedAt time.Time) error
	ListInstitutions(ctx context.Context) ([]models.Institution, error)
}

// InviteView is an invite with its display status.
type InviteView struct {
	models.Invite
	Status string `json:"status"`
}

// Redemption is what a new member submits with their code.
type Redemption struct {
	Code        string `json:"code" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"required,max=200"`
	Institution string `json:"institution" validate:"max=200"`
	UserType    string `json:"user_type" validate:"omitempty,oneof=student instructor"`
}

type InviteService struct {
	store   InviteStore
	mailer  Mailer
	prefix  string
	ttl     time.Duration
	siteURL string
	now     func() time.Time
	logger  zerolog.Logger
}

type InviteOptions struct {
	Prefix  string
	TTL     time.Duration
	SiteURL string
	Now     func() time.Time
}

func NewInviteService(store InviteStore, mailer Mailer, opts InviteOptions) *InviteService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &InviteService{
		store:   store,
		mailer:  mailer,
		prefix:  strings.ToUpper(strings.TrimSpace(opts.Prefix)),
		ttl:     opts.TTL,
		siteURL: opts.SiteURL,
		now:     opts.Now,
		logger:  log.With().Str("component", "inviteService").Logger(),
	}
}

// GenerateCode returns PREFIX-XXXX-XXXX. Without a prefix the first group is
// random as well.
func GenerateCode(prefix string) (string, error) {
	groups := make([]string, 0, 3)
	if prefix != "" {
		groups = append(groups, prefix)
	}
	for len(groups) < 3 {
		group, err := randomGroup(4)
		if err != nil {
			return "", err
		}
		groups = append(groups, group)
	}
	return strings.Join(groups, "-"), nil
}

func randomGroup(n int) (string, error) {
	var b strings.Builder
	size := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// Create stores a new invite for email and mails the code. A mail failure is
// logged; the invite is still returned so an admin can copy the code.
func (s *InviteService) Create(ctx context.Context, email string, createdBy *uuid.UUID) (*InviteView, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var inv *models.Invite
	for attempt := 0; ; attempt++ {
		code, err := GenerateCode(s.prefix)
		if err != nil {
			return nil, err
		}
		inv = &models.Invite{Code: code, Email: email, CreatedBy: createdBy, IsActive: true}
		if s.ttl > 0 {
			expires := s.now().Add(s.ttl)
			inv.ExpiresAt = &expires
		}
		err = s.store.CreateInvite(ctx, inv)
		if err == nil {
			break
		}
		if !errs.IsUniqueViolation(err) || attempt == 2 {
			return nil, fmt.Errorf("create invite: %w", err)
		}
	}

	if err := s.mailer.SendEmail(ctx, "Your archive invitation", s.inviteBody(inv.Code), []string{email}); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("invite created but email failed")
	}
	s.logger.Info().Str("code", inv.Code).Msg("invite created")
	return &InviteView{Invite: *inv, Status: inv.Status(s.now())}, nil
}

func (s *InviteService) inviteBody(code string) string {
	link := ""
	if s.siteURL != "" {
		link = fmt.Sprintf(`<p>Sign up at <a href="%[1]s/login">%[1]s/login</a>.</p>`, html.EscapeString(s.siteURL))
	}
	return fmt.Sprintf("<p>You have been invited to the student game archive.</p><p>Your code: <strong>%s</strong></p>%s",
		html.EscapeString(code), link)
}

func (s *InviteService) List(ctx context.Context) ([]InviteView, error) {
	invites, err := s.store.ListInvites(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]InviteView, 0, len(invites))
	for _, inv := range invites {
		views = append(views, InviteView{Invite: inv, Status: inv.Status(now)})
	}
	return views, nil
}

func (s *InviteService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.store.SetInviteActive(ctx, id, active)
}

func (s *InviteService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteInvite(ctx, id)
}

// Redeem checks the code against the email and creates the person for userID.
// A code can be redeemed once.
func (s *InviteService) Redeem(ctx context.Context, userID uuid.UUID, r Redemption) (*models.Person, error) {
	code := strings.ToUpper(strings.TrimSpace(r.Code))
	email := strings.ToLower(strings.TrimSpace(r.Email))

	inv, err := s.store.FindInviteByCode(ctx, code)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	if !strings.EqualFold(inv.Email, email) {
		return nil, ErrInviteInvalid
	}
	now := s.now()
	switch inv.Status(now) {
	case "used":
		return nil, ErrInviteUsed
	case "inactive":
		return nil, ErrInviteInactive
	case "expired":
		return nil, ErrInviteExpired
	}

	userType := r.UserType
	if userType == "" {
		userType = models.UserTypeStudent
	}
	if userType != models.UserTypeStudent && userType != models.UserTypeInstructor {
		return nil, ErrInvalidRole
	}

	person := &models.Person{
		UserID:   &userID,
		Email:    email,
		Name:     strings.TrimSpace(r.Name),
		UserType: userType,
	}
	if inst := strings.TrimSpace(r.Institution); inst != "" {
		id, err := s.institutionID(ctx, inst)
		if err != nil {
			return nil, err
		}
		if id != nil {
			person.InstitutionID = id
		} else {
			person.InstitutionOther = &inst
		}
	}

	if err := s.store.RedeemInvite(ctx, inv.ID, person, now); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, ErrInviteUsed
		}
		return nil, fmt.Errorf("redeem invite: %w", err)
	}
	s.logger.Info().Str("code", code).Str("personID", person.ID.String()).Msg("invite redeemed")
	return person, nil
}

// institutionID matches the catalog case-insensitively; nil means no match.
func (s *InviteService) institutionID(ctx context.Context, name string) (*uuid.UUID, error) {
	institutions, err := s.store.ListInstitutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	for _, inst := range institutions {
		if strings.EqualFold(inst.InstitutionName, name) {
			id := inst.ID
			return &id, nil
		}
	}
	return nil, nil
}
