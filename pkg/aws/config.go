package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// LoadAWSConfig loads the default AWS config. When AWS_ENDPOINT is set (for
// LocalStack), all SDK clients are pointed at that URL.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	if endpoint := os.Getenv("AWS_ENDPOINT"); endpoint != "" {
		signingRegion := cfg.Region
		if signingRegion == "" {
			signingRegion = os.Getenv("AWS_REGION")
		}
		cfg.EndpointResolverWithOptions = sdkaws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (sdkaws.Endpoint, error) {
				sr := signingRegion
				if sr == "" {
					sr = region
				}
				return sdkaws.Endpoint{
					URL:               endpoint,
					SigningRegion:     sr,
					HostnameImmutable: true,
				}, nil
			})
	}

	return cfg, nil
}
