// Package parser 负责把上传的简历文件变成结构化数据:
// OCR提取纯文本，再由聊天模型解析出结构化档案。
package parser

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-interview-go/internal/config"
	"ai-interview-go/internal/logger"
)

const defaultOCRURL = "https://api.mistral.ai/v1/ocr"

// OCRClient 调用OCR服务从文档中提取文本
type OCRClient struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

// NewOCRClient 从配置创建OCR客户端
func NewOCRClient(cfg *config.OCRConfig) (*OCRClient, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OCR API密钥不能为空")
	}

	apiURL := cfg.APIURL
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultOCRURL
	}
	model := cfg.Model
	if strings.TrimSpace(model) == "" {
		model = "mistral-ocr-latest"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OCRClient{
		apiKey:     cfg.APIKey,
		apiURL:     apiURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrPage struct {
	Markdown string `json:"markdown"`
}

type ocrResponse struct {
	Pages []ocrPage `json:"pages"`
}

// ExtractText 提取文档文本。文件以base64数据URL内联上传，
// 各页的markdown文本用空行连接返回。
func (c *OCRClient) ExtractText(ctx context.Context, fileData []byte, mimeType string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(fileData)
	payload := ocrRequest{
		Model: c.model,
		Document: ocrDocument{
			Type:        "document_url",
			DocumentURL: fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化OCR请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建OCR请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用OCR服务失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取OCR响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR服务返回错误，状态 %s: %s", resp.Status, string(respBody))
	}

	var parsed ocrResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("反序列化OCR响应失败: %w", err)
	}
	if len(parsed.Pages) == 0 {
		return "", fmt.Errorf("OCR响应不含任何页面")
	}

	texts := make([]string, len(parsed.Pages))
	for i, page := range parsed.Pages {
		texts[i] = page.Markdown
	}

	logger.Debug().
		Int("pages", len(parsed.Pages)).
		Msg("OCR文本提取完成")
	return strings.Join(texts, "\n\n"), nil
}
