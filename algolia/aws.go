package algolia

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerClient defines the interface for AWS Secrets Manager operations.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecrets returns a FetchSecrets function that reads the Algolia
// credentials stored at "{env}/algolia" as JSON with app_id and api_key
// fields.
func AWSSecrets(ctx context.Context, client SecretsManagerClient, env string) FetchSecrets {
	secretPath := fmt.Sprintf("%s/algolia", env)
	return func() (Secrets, error) {
		return readSecret(ctx, client, secretPath, "at path "+secretPath, "from path "+secretPath)
	}
}

// AWSSecretsFromARN is AWSSecrets for a secret addressed by ARN.
func AWSSecretsFromARN(ctx context.Context, client SecretsManagerClient, secretArn string) FetchSecrets {
	return func() (Secrets, error) {
		return readSecret(ctx, client, secretArn, "with ARN "+secretArn, "from ARN "+secretArn)
	}
}

func readSecret(ctx context.Context, client SecretsManagerClient, id, at, from string) (Secrets, error) {
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return Secrets{}, fmt.Errorf("failed to get secret from AWS Secrets Manager %s: %w", at, err)
	}

	if result.SecretString == nil {
		return Secrets{}, fmt.Errorf("secret %s has no string value", at)
	}

	var secrets Secrets
	if err := json.Unmarshal([]byte(aws.ToString(result.SecretString)), &secrets); err != nil {
		return Secrets{}, fmt.Errorf("failed to unmarshal secret JSON %s: %w", from, err)
	}
	return secrets, nil
}
