package parser

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChatModel 返回预置内容的聊天模型
type mockChatModel struct {
	response string
	err      error
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{Role: schema.Assistant, Content: m.response}, nil
}

func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func (m *mockChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

const sampleProfileJSON = `{
  "personal_info": {"first_name": "Jane", "last_name": "Doe", "email": "jane@example.com", "phone": "123", "location": "Shanghai"},
  "career_objective": "data science role",
  "education": [{"degree": "B.Sc", "institution": "Fudan", "major": "CS", "start_date": "2016", "end_date": "2020"}],
  "skills": [{"name": "Python", "category": "Language"}, {"name": "SQL", "category": "Tool"}],
  "experience": [{"position": "Analyst", "company": "Acme", "responsibilities": "built dashboards", "start_date": "2020", "end_date": "2023"}]
}`

func TestParseResume(t *testing.T) {
	rp := NewResumeParser(&mockChatModel{response: sampleProfileJSON})

	profile, err := rp.Parse(context.Background(), "some ocr text")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", profile.FullName())
	assert.Equal(t, "jane@example.com", profile.PersonalInfo.Email)
	assert.Equal(t, "Python SQL", profile.SkillsText())
	assert.Contains(t, profile.ExperienceText(), "Analyst")
	assert.Contains(t, profile.ExperienceText(), "built dashboards")
}

func TestParseResumeWithMarkdownFences(t *testing.T) {
	// 模型无视指令输出了代码块围栏
	rp := NewResumeParser(&mockChatModel{response: "```json\n" + sampleProfileJSON + "\n```"})

	profile, err := rp.Parse(context.Background(), "some ocr text")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.FullName())
}

func TestParseResumeEmptyInput(t *testing.T) {
	rp := NewResumeParser(&mockChatModel{response: sampleProfileJSON})
	_, err := rp.Parse(context.Background(), "   ")
	assert.Error(t, err)
}

func TestParseResumeInvalidJSON(t *testing.T) {
	rp := NewResumeParser(&mockChatModel{response: "not json at all"})
	_, err := rp.Parse(context.Background(), "some text")
	assert.Error(t, err)
}

func TestStripJSONFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"prefix ```json\n{\"a\":1}\n``` suffix", `{"a":1}`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StripJSONFences(tc.in))
	}
}
