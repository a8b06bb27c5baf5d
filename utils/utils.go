package utils

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ecochain/types"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"
	"github.com/valyala/fasthttp"
)

// Body fields never written to the request log.
var redactedFields = map[string]bool{
	"password":     true,
	"token":        true,
	"access_token": true,
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", fmt.Errorf("authorization header missing")
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || tokenParts[1] == "" {
		return "", fmt.Errorf("invalid token format")
	}
	return tokenParts[1], nil
}

// ParseDate reads a calendar date (YYYY-MM-DD or RFC 3339) as midnight UTC.
// The day is taken in the value's own offset, so the chosen calendar date is kept.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.Parse(time.DateOnly, value)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return now.With(day).BeginningOfDay(), nil
}

// sanitizeRequestBody sanitizes request body for file uploads, large content and secrets
func sanitizeRequestBody(c *fiber.Ctx) string {
	contentType := c.Get(fiber.HeaderContentType)
	if strings.Contains(contentType, "multipart/form-data") {
		formData := make(map[string]interface{})

		if form, err := c.MultipartForm(); err == nil {
			for key, values := range form.Value {
				if len(values) > 0 {
					formData[key] = values[0]
				}
			}
			for key, files := range form.File {
				fileInfo := make([]map[string]interface{}, len(files))
				for i, file := range files {
					fileInfo[i] = map[string]interface{}{
						"filename": file.Filename,
						"size":     file.Size,
						"content":  "[FILE_CONTENT_REMOVED]",
					}
				}
				formData[key] = fileInfo
			}
		}

		if jsonBytes, err := json.Marshal(redact(formData)); err == nil {
			return string(jsonBytes)
		}
		return "[MULTIPART_FORM_DATA]"
	}

	body := string(c.Body())
	if len(body) > 1000 && (strings.Contains(body, "data:image/") ||
		strings.Contains(body, "base64") ||
		isLikelyBase64(body)) {
		return "[LARGE_REQUEST_BODY_WITH_POSSIBLE_FILE_CONTENT]"
	}
	return RedactJSON(body)
}

// RedactJSON masks secret fields in a JSON object body. Non-object bodies are returned unchanged.
func RedactJSON(body string) string {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return body
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return body
	}
	out, err := json.Marshal(redact(payload))
	if err != nil {
		return body
	}
	return string(out)
}

func redact(payload map[string]interface{}) map[string]interface{} {
	for key, value := range payload {
		if redactedFields[strings.ToLower(key)] {
			payload[key] = "[REDACTED]"
			continue
		}
		if nested, ok := value.(map[string]interface{}); ok {
			payload[key] = redact(nested)
		}
	}
	return payload
}

// isLikelyBase64 detects if content looks like base64
func isLikelyBase64(content string) bool {
	if len(content) < 100 {
		return false
	}

	base64Chars := 0
	for _, char := range content {
		if (char >= 'A' && char <= 'Z') ||
			(char >= 'a' && char <= 'z') ||
			(char >= '0' && char <= '9') ||
			char == '+' || char == '/' || char == '=' {
			base64Chars++
		}
	}
	return float64(base64Chars)/float64(len(content)) > 0.8
}

// CreateSanitizedLogEntry deep copies the request and response into a log
// entry. Tokens in the bodies are redacted and the Authorization, Cookie and
// Set-Cookie headers are dropped.
func CreateSanitizedLogEntry(c *fiber.Ctx, userID string, latency time.Duration) types.LogEntry {
	method := string([]byte(c.Method()))
	url := string([]byte(c.OriginalURL()))
	requestBody := sanitizeRequestBody(c)
	responseBody := RedactJSON(string(append([]byte(nil), c.Response().Body()...)))

	var reqHeader fasthttp.RequestHeader
	c.Request().Header.CopyTo(&reqHeader)
	reqHeader.Del(fiber.HeaderAuthorization)
	reqHeader.Del(fiber.HeaderCookie)

	var respHeader fasthttp.ResponseHeader
	c.Response().Header.CopyTo(&respHeader)
	respHeader.Del(fiber.HeaderSetCookie)

	return types.LogEntry{
		Method:          method,
		URL:             url,
		UserID:          userID,
		RequestBody:     requestBody,
		ResponseBody:    responseBody,
		RequestHeaders:  string(reqHeader.Header()),
		ResponseHeaders: string(respHeader.Header()),
		StatusCode:      c.Response().StatusCode(),
		LatencyMs:       latency.Milliseconds(),
		CreatedAt:       time.Now(),
	}
}
