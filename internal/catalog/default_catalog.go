package catalog

// defaultCatalogYAML is the embedded fallback provider/model list, used
// when no override config file is supplied. It is deliberately small
// and stable; operators extend it with a config file or DEBATE_
// environment overrides rather than editing this default.
var defaultCatalogYAML = []byte(`
providers:
  - provider_id: openai
    display_name: OpenAI
    api_key_env_var: OPENAI_API_KEY
    documentation_url: https://platform.openai.com/docs
    local: false
    models:
      - model_id: gpt-4-turbo-preview
        display_name: GPT-4 Turbo
        context_window: 128000
        max_output_tokens: 4096
        recommended: true
        pricing_tier: premium
      - model_id: gpt-4o-mini
        display_name: GPT-4o Mini
        context_window: 128000
        max_output_tokens: 16384
        recommended: true
        pricing_tier: standard
  - provider_id: anthropic
    display_name: Anthropic
    api_key_env_var: ANTHROPIC_API_KEY
    documentation_url: https://docs.anthropic.com
    local: false
    models:
      - model_id: claude-3-5-sonnet-latest
        display_name: Claude 3.5 Sonnet
        context_window: 200000
        max_output_tokens: 8192
        recommended: true
        pricing_tier: premium
  - provider_id: bedrock
    display_name: AWS Bedrock
    api_key_env_var: ""
    documentation_url: https://docs.aws.amazon.com/bedrock
    local: false
    models:
      - model_id: anthropic.claude-3-sonnet-20240229-v1:0
        display_name: Claude 3 Sonnet (Bedrock)
        context_window: 200000
        max_output_tokens: 4096
        recommended: false
        pricing_tier: premium
      - model_id: amazon.titan-text-express-v1
        display_name: Titan Text Express
        context_window: 8000
        max_output_tokens: 2048
        recommended: false
        pricing_tier: standard
  - provider_id: ollama
    display_name: Ollama (local)
    api_key_env_var: ""
    documentation_url: https://ollama.com
    local: true
    models:
      - model_id: llama3
        display_name: Llama 3
        context_window: 8192
        max_output_tokens: 4096
        recommended: false
        pricing_tier: free
`)
