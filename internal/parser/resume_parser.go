package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// 简历结构化提取提示词，要求模型只输出JSON
const resumeExtractionPrompt = `Analyze the given OCR-extracted CV text and extract structured information.

RETURN ONLY A VALID JSON OBJECT. NO MARKDOWN, NO CODE BLOCKS, NO EXTRA TEXT.

The JSON structure must be exactly as follows:
{
    "personal_info": {
        "first_name": "string",
        "last_name": "string",
        "email": "string",
        "phone": "string",
        "location": "string"
    },
    "career_objective": "string",
    "education": [
        {
            "degree": "string",
            "institution": "string",
            "major": "string",
            "start_date": "string",
            "end_date": "string"
        }
    ],
    "skills": [
        {
            "name": "string",
            "category": "string"
        }
    ],
    "experience": [
        {
            "position": "string",
            "company": "string",
            "responsibilities": "string",
            "start_date": "string",
            "end_date": "string"
        }
    ]
}

RULES:
- Extract ONLY information present in the text.
- Split full name into first_name and last_name.
- If a field is missing, use null or empty string.
- For dates, try to extract Year or Month/Year.
- Categorize skills if possible (e.g. "Language", "Tool").`

// PersonalInfo 候选人基础信息
type PersonalInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
}

// EducationEntry 教育经历
type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Major       string `json:"major"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// SkillEntry 技能条目
type SkillEntry struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ExperienceEntry 工作经历
type ExperienceEntry struct {
	Position         string `json:"position"`
	Company          string `json:"company"`
	Responsibilities string `json:"responsibilities"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
}

// ResumeProfile 简历结构化档案
type ResumeProfile struct {
	PersonalInfo    PersonalInfo      `json:"personal_info"`
	CareerObjective string            `json:"career_objective"`
	Education       []EducationEntry  `json:"education"`
	Skills          []SkillEntry      `json:"skills"`
	Experience      []ExperienceEntry `json:"experience"`
}

// FullName 返回拼接后的姓名
func (p *ResumeProfile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.PersonalInfo.FirstName) + " " + strings.TrimSpace(p.PersonalInfo.LastName))
}

// SkillsText 返回空格连接的技能文本，供推荐与质量模型消费
func (p *ResumeProfile) SkillsText() string {
	names := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		if name := strings.TrimSpace(s.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, " ")
}

// ExperienceText 返回职位与职责的合并文本
func (p *ResumeProfile) ExperienceText() string {
	var parts []string
	for _, e := range p.Experience {
		if pos := strings.TrimSpace(e.Position); pos != "" {
			parts = append(parts, pos)
		}
		if resp := strings.TrimSpace(e.Responsibilities); resp != "" {
			parts = append(parts, resp)
		}
	}
	return strings.Join(parts, " ")
}

// ResumeParser 用聊天模型把OCR文本解析为结构化档案
type ResumeParser struct {
	chatModel model.ChatModel
}

// NewResumeParser 创建简历解析器
func NewResumeParser(chatModel model.ChatModel) *ResumeParser {
	return &ResumeParser{chatModel: chatModel}
}

// Parse 解析OCR提取的简历文本。
// 模型偶尔会无视指令输出markdown代码块，解析前先剥掉围栏。
func (rp *ResumeParser) Parse(ctx context.Context, extractedText string) (*ResumeProfile, error) {
	if strings.TrimSpace(extractedText) == "" {
		return nil, fmt.Errorf("简历文本为空")
	}

	resp, err := rp.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(resumeExtractionPrompt),
		schema.UserMessage(extractedText),
	})
	if err != nil {
		return nil, fmt.Errorf("调用聊天模型解析简历失败: %w", err)
	}

	jsonText := StripJSONFences(resp.Content)

	var profile ResumeProfile
	if err := json.Unmarshal([]byte(jsonText), &profile); err != nil {
		return nil, fmt.Errorf("解析模型输出的JSON失败: %w", err)
	}
	return &profile, nil
}

// StripJSONFences 剥掉markdown代码块围栏，返回内部文本
func StripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
		return strings.TrimSpace(text)
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+len("```"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
		return strings.TrimSpace(text)
	}
	return text
}
