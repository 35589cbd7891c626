package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"elearning/backend/config"
)

var ErrEmptyPhone = errors.New("手机号为空")

// Sender 短信发送抽象
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// New 按配置创建短信发送器
func New(cfg *config.SMSConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Driver {
	case "log", "":
		return NewLogSender(logger), nil
	case "http":
		return NewHTTPSender(cfg), nil
	default:
		return nil, fmt.Errorf("未知的短信驱动: %s", cfg.Driver)
	}
}

// LogSender 只写日志，用于开发环境
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, phone, message string) error {
	if strings.TrimSpace(phone) == "" {
		return ErrEmptyPhone
	}
	s.logger.Info("SMS", zap.String("phone", phone), zap.String("message", message))
	return nil
}

// HTTPSender 通过 HTTP 网关发送短信
// 请求体: {"sender": "...", "receptor": "...", "message": "..."}，Authorization: Bearer {api_key}
type HTTPSender struct {
	endpoint string
	apiKey   string
	sender   string
	client   *http.Client
}

func NewHTTPSender(cfg *config.SMSConfig) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSender{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		sender:   cfg.Sender,
		client:   &http.Client{Timeout: timeout},
	}
}

type gatewayRequest struct {
	Sender   string `json:"sender,omitempty"`
	Receptor string `json:"receptor"`
	Message  string `json:"message"`
}

func (s *HTTPSender) Send(ctx context.Context, phone, message string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ErrEmptyPhone
	}

	body, err := json.Marshal(gatewayRequest{Sender: s.sender, Receptor: phone, Message: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构造短信请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求短信网关失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("短信网关返回 HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
