package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterLister is the slice of the SSM API the overlay uses.
type ParameterLister interface {
	GetParametersByPath(ctx context.Context, in *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// NewSSMClient builds a Parameter Store client from the default AWS chain.
func NewSSMClient(ctx context.Context, region string) (*ssm.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// LoadSSM reads every parameter under prefix, decrypting SecureStrings. The
// last path segment becomes the key, so /archive/prod/JWT_SECRET maps to
// JWT_SECRET.
func LoadSSM(ctx context.Context, client ParameterLister, prefix string) (map[string]string, error) {
	out := make(map[string]string)
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("get parameters under %s: %w", prefix, err)
		}
		for _, p := range page.Parameters {
			name := strings.ToUpper(path.Base(aws.ToString(p.Name)))
			out[name] = aws.ToString(p.Value)
		}
	}
	return out, nil
}
