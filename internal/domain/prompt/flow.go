package prompt

import (
	"fmt"
	"strings"

	"petvision-server-go/internal/platform/errors"
)

// Flow 分析流程。两个流程只在指令模板和页面文案上不同。
type Flow int

const (
	FlowVeterinary Flow = iota + 1
	FlowDogFood
)

// ResultHeading 结果区标题，两个流程相同
const ResultHeading = "Detailed analysis based on the uploaded image"

// Descriptor 流程的界面文案与指令模板
type Descriptor struct {
	ID          string `json:"id"`
	NavLabel    string `json:"nav_label"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	UploadLabel string `json:"upload_label"`
	ButtonLabel string `json:"button_label"`
	Heading     string `json:"heading"`
	Template    string `json:"-"`
}

var descriptors = map[Flow]Descriptor{
	FlowVeterinary: {
		ID:          "veterinary",
		NavLabel:    "AI Veterinarian",
		Title:       "AI Veterinarian 👨‍⚕️ 🩺",
		Subtitle:    "An app to help with medical analysis using images",
		UploadLabel: "Upload the image for Analysis",
		ButtonLabel: "Generate Analysis",
		Heading:     ResultHeading,
		Template:    VeterinaryTemplate,
	},
	FlowDogFood: {
		ID:          "dog-food",
		NavLabel:    "AI Dog Food Recommender",
		Title:       "AI Dog Food Nutritionist",
		UploadLabel: "Upload the image for Analysis",
		ButtonLabel: "Generate Analysis",
		Heading:     ResultHeading,
		Template:    DogFoodTemplate,
	},
}

// Flows 按导航顺序返回全部流程
func Flows() []Flow {
	return []Flow{FlowVeterinary, FlowDogFood}
}

// ParseFlow 解析 URL 中的流程标识
func ParseFlow(raw string) (Flow, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "veterinary", "vet":
		return FlowVeterinary, nil
	case "dog-food", "dogfood", "dog_food":
		return FlowDogFood, nil
	default:
		return 0, errors.New(errors.KindValidation, "prompt.ParseFlow", fmt.Sprintf("unknown flow %q", raw))
	}
}

func (f Flow) Valid() bool {
	_, ok := descriptors[f]
	return ok
}

// Descriptor returns the UI copy and template for f.
func (f Flow) Descriptor() Descriptor {
	return descriptors[f]
}

func (f Flow) Template() string {
	return descriptors[f].Template
}

func (f Flow) String() string {
	if d, ok := descriptors[f]; ok {
		return d.ID
	}
	return fmt.Sprintf("flow(%d)", int(f))
}
