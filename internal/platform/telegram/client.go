package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://api.telegram.org"

// Client is a minimal Telegram Bot API client.
type Client struct {
	Token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return NewClientWithBaseURL(token, DefaultBaseURL)
}

// NewClientWithBaseURL points the client at a different Bot API host, such
// as a local bot server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	return &Client{
		Token:   token,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendMessageReq struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	jsonBody, err := json.Marshal(sendMessageReq{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}
	return c.post(ctx, "sendMessage", "application/json", bytes.NewReader(jsonBody))
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("document", fileName)
	if err != nil {
		return err
	}
	if _, err := part.Write(fileData); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return c.post(ctx, "sendDocument", writer.FormDataContentType(), body)
}

func (c *Client) post(ctx context.Context, method, contentType string, body io.Reader) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.Token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram api returned status: %s, body: %s", resp.Status, string(bodyBytes))
	}
	return nil
}
