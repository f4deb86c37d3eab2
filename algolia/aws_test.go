package algolia

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// mockSecretsManagerClient implements SecretsManagerClient for testing
type mockSecretsManagerClient struct {
	secretValue *string
	err         error
	requested   string
}

func (m *mockSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	m.requested = aws.ToString(params.SecretId)
	if m.err != nil {
		return nil, m.err
	}

	return &secretsmanager.GetSecretValueOutput{
		SecretString: m.secretValue,
	}, nil
}

func TestAWSSecrets(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		client      *mockSecretsManagerClient
		env         string
		wantSecrets Secrets
		wantErr     string
	}{
		{
			name:        "success",
			client:      &mockSecretsManagerClient{secretValue: aws.String(`{"app_id":"test-app-id","api_key":"test-api-key"}`)},
			env:         "production",
			wantSecrets: Secrets{AppID: "test-app-id", APIKey: "test-api-key"},
		},
		{
			name:        "staging path",
			client:      &mockSecretsManagerClient{secretValue: aws.String(`{"app_id":"staging-app-id","api_key":"staging-api-key"}`)},
			env:         "staging",
			wantSecrets: Secrets{AppID: "staging-app-id", APIKey: "staging-api-key"},
		},
		{
			name:    "get secret error",
			client:  &mockSecretsManagerClient{err: errors.New("secrets manager error")},
			env:     "production",
			wantErr: "failed to get secret from AWS Secrets Manager at path production/algolia",
		},
		{
			name:    "nil secret string",
			client:  &mockSecretsManagerClient{},
			env:     "production",
			wantErr: "secret at path production/algolia has no string value",
		},
		{
			name:    "invalid json",
			client:  &mockSecretsManagerClient{secretValue: aws.String(`{"app_id":"test-app-id","api_key":}`)},
			env:     "production",
			wantErr: "failed to unmarshal secret JSON from path production/algolia",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secrets, err := AWSSecrets(ctx, tt.client, tt.env)()

			if tt.client.requested != tt.env+"/algolia" {
				t.Errorf("Expected secret %s/algolia to be requested, got %s", tt.env, tt.client.requested)
			}

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing '%s', got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if secrets != tt.wantSecrets {
				t.Errorf("Expected %+v, got %+v", tt.wantSecrets, secrets)
			}
		})
	}
}

func TestAWSSecretsFromARN(t *testing.T) {
	arn := "arn:aws:secretsmanager:eu-west-1:123456789012:secret:algolia"
	client := &mockSecretsManagerClient{secretValue: aws.String(`{"app_id":"a","api_key":"k"}`)}

	secrets, err := AWSSecretsFromARN(context.Background(), client, arn)()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if client.requested != arn {
		t.Errorf("Expected ARN to be requested, got %s", client.requested)
	}
	if secrets.AppID != "a" || secrets.APIKey != "k" {
		t.Errorf("Unexpected secrets %+v", secrets)
	}

	_, err = AWSSecretsFromARN(context.Background(), &mockSecretsManagerClient{}, arn)()
	if err == nil || !strings.Contains(err.Error(), "with ARN "+arn+" has no string value") {
		t.Errorf("Expected missing string error, got %v", err)
	}
}
