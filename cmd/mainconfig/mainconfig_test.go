package mainconfig

import (
	"context"
	"testing"

	appconfig "github.com/wolfman30/studyvisa-ai-platform/internal/config"
)

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "eu-west-2",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "secret",
		AWSEndpointOverride: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}
	if awsCfg.Region != "eu-west-2" {
		t.Fatalf("expected region eu-west-2, got %s", awsCfg.Region)
	}
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "test" {
		t.Fatalf("expected static credentials, got %s", creds.AccessKeyID)
	}
	if awsCfg.EndpointResolverWithOptions == nil {
		t.Fatalf("expected endpoint override resolver")
	}
	ep, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint("SQS", "eu-west-2")
	if err != nil || ep.URL != "http://localhost:4566" {
		t.Fatalf("expected sqs endpoint override, got %+v err=%v", ep, err)
	}
	if _, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint("DynamoDB", "eu-west-2"); err == nil {
		t.Fatalf("expected other services to use default resolution")
	}
}

func TestOptionalAWSConfigSkipsWhenUnused(t *testing.T) {
	awsCfg, err := OptionalAWSConfig(context.Background(), &appconfig.Config{TurnDispatch: appconfig.DispatchMemory})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg != nil {
		t.Fatalf("expected nil AWS config when nothing needs it")
	}
}
