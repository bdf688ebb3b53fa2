package llm

import "strings"

// ThinkingCapability describes a model's native thinking support.
type ThinkingCapability struct {
	SupportsNativeThinking bool   // Whether the model supports native thinking
	ReasoningEffortParam   string // API parameter name ("reasoning_effort" for OpenAI-compat)
}

// DetectThinkingCapability determines if a model supports native thinking
// based on model name patterns and a known model list.
//
// Detection strategy (priority order):
//  1. Known model list — exact prefix matches for confirmed models
//  2. Keyword matching — model name contains thinking-related keywords
//  3. Default — assume no native thinking support
func DetectThinkingCapability(modelName string) ThinkingCapability {
	lower := strings.ToLower(modelName)

	// Strip common provider prefixes (e.g., "Pro/deepseek-ai/DeepSeek-R1")
	parts := strings.Split(lower, "/")
	baseName := parts[len(parts)-1]

	// 1. Known models with confirmed native thinking support
	knownThinkingModels := []string{
		"deepseek-reasoner",
		"deepseek-r1",
		"deepseek-r2",
		"o1-mini",
		"o1-preview",
		"o1",
		"o3-mini",
		"o3",
		"o4-mini",
		"claude-sonnet-4-5", // Claude with extended thinking
		"claude-3-7-sonnet", // Claude 3.7 Sonnet extended thinking
		"glm-5",             // Zhipu GLM-5 with deep thinking (reasoning_content)
	}

	for _, known := range knownThinkingModels {
		if strings.HasPrefix(baseName, known) {
			return ThinkingCapability{
				SupportsNativeThinking: true,
				ReasoningEffortParam:   "reasoning_effort",
			}
		}
	}

	// 2. Keyword-based detection for unknown/new models
	thinkingKeywords := []string{
		"-r1", "-r2", "reasoner", "thinking",
		"-o1", "-o3", "-o4",
	}

	for _, kw := range thinkingKeywords {
		if strings.Contains(baseName, kw) {
			return ThinkingCapability{
				SupportsNativeThinking: true,
				ReasoningEffortParam:   "reasoning_effort",
			}
		}
	}

	// 3. Default: no native thinking
	return ThinkingCapability{
		SupportsNativeThinking: false,
	}
}

// contextWindowTable maps a model-name prefix to its context window in
// tokens. Adapted from the per-model-family switch idiom in
// MrWong99-glyphoxa's pkg/provider/llm/anyllm modelCapabilities table.
var contextWindowTable = []struct {
	prefix string
	tokens int
}{
	{"gpt-4o", 128_000},
	{"gpt-4-turbo", 128_000},
	{"gpt-4", 8_192},
	{"gpt-3.5-turbo", 16_385},
	{"o1-mini", 128_000},
	{"o1", 200_000},
	{"o3-mini", 200_000},
	{"o3", 200_000},
	{"claude-3-5", 200_000},
	{"claude-3-7", 200_000},
	{"claude-sonnet-4", 200_000},
	{"claude-3", 200_000},
	{"claude", 200_000},
	{"gemini-2", 1_048_576},
	{"gemini-1.5-pro", 2_097_152},
	{"gemini-1.5-flash", 1_048_576},
	{"gemini", 128_000},
	{"llama-3.1", 131_072},
	{"llama", 8_192},
	{"mixtral", 32_768},
}

// GetContextWindow returns the known context window for a model name, or 0
// if the model is not recognized (callers should fall back to a safe
// default, as the teacher's Config.ResolveContextWindow does).
func GetContextWindow(modelName string) int {
	lower := strings.ToLower(modelName)
	parts := strings.Split(lower, "/")
	baseName := parts[len(parts)-1]
	for _, entry := range contextWindowTable {
		if strings.HasPrefix(baseName, entry.prefix) {
			return entry.tokens
		}
	}
	return 0
}

// toolCallingBlocklist lists model-name prefixes known NOT to support
// function/tool calling.
var toolCallingBlocklist = []string{"o1-mini"}

// DetectToolCallingCapability reports whether a model is known to support
// structured tool calls. Unknown models default to true (most current
// chat-completion-compatible models support it); known exceptions are
// listed explicitly.
func DetectToolCallingCapability(modelName string) bool {
	lower := strings.ToLower(modelName)
	parts := strings.Split(lower, "/")
	baseName := parts[len(parts)-1]
	for _, blocked := range toolCallingBlocklist {
		if strings.HasPrefix(baseName, blocked) {
			return false
		}
	}
	return true
}
