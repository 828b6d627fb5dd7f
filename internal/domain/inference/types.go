package inference

// GenerationConfig 采样参数。TopK 为 0 表示不限制。
type GenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"top_p"`
	TopK            float32 `json:"top_k"`
	MaxOutputTokens int32   `json:"max_output_tokens"`
}

type HarmCategory string

const (
	HarmCategoryHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

type BlockThreshold string

const BlockMediumAndAbove BlockThreshold = "BLOCK_MEDIUM_AND_ABOVE"

type SafetySetting struct {
	Category  HarmCategory   `json:"category"`
	Threshold BlockThreshold `json:"threshold"`
}

// SafetyPolicy 按类别的拦截阈值
type SafetyPolicy []SafetySetting

// DefaultGenerationConfig 所有流程共用的生成参数
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     1,
		TopP:            0.95,
		TopK:            0,
		MaxOutputTokens: 8192,
	}
}

// DefaultSafetyPolicy 四个类别均拦截中等及以上
func DefaultSafetyPolicy() SafetyPolicy {
	return SafetyPolicy{
		{Category: HarmCategoryHarassment, Threshold: BlockMediumAndAbove},
		{Category: HarmCategoryHateSpeech, Threshold: BlockMediumAndAbove},
		{Category: HarmCategorySexuallyExplicit, Threshold: BlockMediumAndAbove},
		{Category: HarmCategoryDangerousContent, Threshold: BlockMediumAndAbove},
	}
}

// ImagePart 图片部分：MIME 标签加原始字节
type ImagePart struct {
	MIMEType string
	Data     []byte
}

// Request 一次多模态推理请求。Parts 顺序固定：图片在前，文本在后。
type Request struct {
	Image      ImagePart
	Text       string
	Generation GenerationConfig
	Safety     SafetyPolicy
}

// Response 模型返回。Text 为空表示没有可用输出。
type Response struct {
	Text         string `json:"text"`
	Blocked      bool   `json:"blocked"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Empty reports whether the response carries no usable text.
func (r *Response) Empty() bool {
	return r == nil || r.Text == ""
}
