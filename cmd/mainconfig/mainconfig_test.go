package mainconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/Erick-Marinho/Health-AI/internal/config"
)

func TestEndpointResolver(t *testing.T) {
	resolver := endpointResolver("http://localhost:4566", "sa-east-1")

	for _, service := range []string{sqs.ServiceID, s3.ServiceID} {
		ep, err := resolver.ResolveEndpoint(service, "sa-east-1")
		if err != nil {
			t.Fatalf("%s: %v", service, err)
		}
		if ep.URL != "http://localhost:4566" || ep.SigningRegion != "sa-east-1" || !ep.HostnameImmutable {
			t.Errorf("%s: endpoint = %+v", service, ep)
		}
	}

	_, err := resolver.ResolveEndpoint("STS", "sa-east-1")
	var notFound *aws.EndpointNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("STS: err = %v, want EndpointNotFoundError", err)
	}
}

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	cfg := &appconfig.Config{
		AWSRegion:           "sa-east-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "secret",
		AWSEndpointOverride: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if awsCfg.Region != "sa-east-1" {
		t.Errorf("region = %s", awsCfg.Region)
	}
	if awsCfg.EndpointResolverWithOptions == nil {
		t.Error("expected an endpoint resolver for the override")
	}

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "test" || creds.SecretAccessKey != "secret" {
		t.Errorf("credentials = %s/%s", creds.AccessKeyID, creds.SecretAccessKey)
	}
}

func TestLoadAWSConfigWithoutOverride(t *testing.T) {
	awsCfg, err := LoadAWSConfig(context.Background(), &appconfig.Config{AWSRegion: "us-east-1"})
	if err != nil {
		t.Fatal(err)
	}
	if awsCfg.EndpointResolverWithOptions != nil {
		t.Error("resolver set without an endpoint override")
	}
}
