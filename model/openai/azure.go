package openai

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// AzureOptions configure construction of an Azure OpenAI backed model.
type AzureOptions struct {
	// Endpoint is the resource endpoint, e.g. https://my-resource.openai.azure.com.
	Endpoint string
	// APIVersion selects the Azure OpenAI REST API version, e.g. "2024-10-21".
	APIVersion string
	// Deployment is the deployment name; it doubles as the model identifier in requests.
	Deployment string
	// APIKey authenticates with a static key. Leave empty to use Entra ID
	// (DefaultAzureCredential) instead.
	APIKey string
	// TokenCredential overrides the credential used for Entra ID auth. Ignored
	// when APIKey is set.
	TokenCredential azcore.TokenCredential

	Temperature         float64
	MaxCompletionTokens int64
}

// NewAzureModel creates a Model backed by an Azure OpenAI deployment.
// Authentication prefers the static API key when provided and falls back to
// Entra ID via DefaultAzureCredential (managed identity, CLI login, env).
func NewAzureModel(optFns ...func(o *AzureOptions)) (*Model, error) {
	opts := AzureOptions{
		APIVersion:          "2024-10-21",
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("azure openai endpoint is required")
	}
	if opts.Deployment == "" {
		return nil, fmt.Errorf("azure openai deployment name is required")
	}

	clientOpts := []option.RequestOption{
		azure.WithEndpoint(opts.Endpoint, opts.APIVersion),
	}
	switch {
	case opts.APIKey != "":
		clientOpts = append(clientOpts, azure.WithAPIKey(opts.APIKey))
	case opts.TokenCredential != nil:
		clientOpts = append(clientOpts, azure.WithTokenCredential(opts.TokenCredential))
	default:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("create default azure credential: %w", err)
		}
		clientOpts = append(clientOpts, azure.WithTokenCredential(cred))
	}

	client := oai.NewClient(clientOpts...)
	return NewModelFromClient(&client, func(o *Options) {
		o.Model = opts.Deployment
		o.Temperature = opts.Temperature
		o.MaxCompletionTokens = opts.MaxCompletionTokens
		o.Provider = "azure-openai"
	}), nil
}
