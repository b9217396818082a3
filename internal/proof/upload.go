package proof

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Upload описывает принятый запрос, файл уже лежит во временном каталоге.
// Текстовые поля не интерпретируются.
type Upload struct {
	OriginalName      string
	Path              string
	Size              int64
	Description       string
	Amount            string
	ContractorAddress string

	logger      *zap.Logger
	cleanupOnce sync.Once
}

// Cleanup удаляет временный файл. Повторный вызов ничего не делает.
func (u *Upload) Cleanup() {
	if u == nil || u.Path == "" {
		return
	}
	u.cleanupOnce.Do(func() {
		err := os.Remove(u.Path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return
		}
		if u.logger != nil {
			u.logger.Debug("failed to remove scratch file", zap.String("path", u.Path), zap.Error(err))
		}
	})
}
