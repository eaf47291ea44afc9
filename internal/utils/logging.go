package utils

import (
	"github.com/google/uuid"
)

// MaskUserID маскирует UUID пользователя для безопасного логирования
// Показывает только первые 8 символов UUID + ***
// Пример: "d3c8c7a6-1234-5678-abcd-ef1234567890" -> "d3c8c7a6***"
func MaskUserID(id uuid.UUID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8] + "***"
	}
	return "***"
}
