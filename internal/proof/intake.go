package proof

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	FieldProofFile         = "proofFile"
	FieldDescription       = "description"
	FieldAmount            = "amount"
	FieldContractorAddress = "contractorAddress"

	scratchPrefix = "proof-"

	// лимит на одно текстовое поле
	maxFieldBytes = 64 << 10

	defaultFileName = "proof"
)

type Intake struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewIntake создаёт каталог для временных файлов, если его нет.
// При maxBytes <= 0 размер тела не ограничен.
func NewIntake(dir string, maxBytes int64, logger *zap.Logger) (*Intake, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Intake{dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

// Receive читает multipart-тело потоково и сохраняет единственный файл
// proofFile во временный файл. При любой ошибке временный файл удаляется.
func (in *Intake) Receive(r *http.Request) (*Upload, error) {
	if in.maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, in.maxBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, invalid(ErrNotMultipart)
	}

	upload := &Upload{logger: in.logger}
	fail := func(err error) (*Upload, error) {
		upload.Cleanup()
		return nil, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(in.bodyError(err))
		}

		switch {
		case part.FileName() != "":
			if part.FormName() != FieldProofFile || upload.Path != "" {
				part.Close()
				return fail(invalid(fmt.Errorf("%w %q", ErrUnexpectedFile, part.FormName())))
			}
			if err := in.store(upload, part); err != nil {
				part.Close()
				return fail(err)
			}
		default:
			if err := readField(upload, part); err != nil {
				part.Close()
				return fail(in.bodyError(err))
			}
		}
		part.Close()
	}

	if upload.Path == "" {
		return nil, invalid(ErrMissingFile)
	}
	return upload, nil
}

func (in *Intake) store(upload *Upload, part *multipart.Part) error {
	path := filepath.Join(in.dir, scratchPrefix+uuid.NewString())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	upload.Path = path
	upload.OriginalName = SanitizeFilename(part.FileName())

	n, copyErr := io.Copy(f, part)
	closeErr := f.Close()
	upload.Size = n
	if copyErr != nil {
		return in.bodyError(copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close scratch file: %w", closeErr)
	}
	return nil
}

// bodyError отличает превышение лимита и битое тело от локальных сбоев записи
func (in *Intake) bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return invalid(fmt.Errorf("%w of %d bytes", ErrTooLarge, tooLarge.Limit))
	case errors.Is(err, errFieldTooLarge):
		return invalid(fmt.Errorf("%w: %w", ErrTooLarge, err))
	case isWriteError(err):
		return err
	default:
		return invalid(fmt.Errorf("%w: %w", ErrMalformedBody, err))
	}
}

var errFieldTooLarge = errors.New("text field too large")

func readField(upload *Upload, part *multipart.Part) error {
	var dst *string
	switch part.FormName() {
	case FieldDescription:
		dst = &upload.Description
	case FieldAmount:
		dst = &upload.Amount
	case FieldContractorAddress:
		dst = &upload.ContractorAddress
	default:
		_, err := io.Copy(io.Discard, part)
		return err
	}

	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return err
	}
	if len(data) > maxFieldBytes {
		return fmt.Errorf("%w: %s", errFieldTooLarge, part.FormName())
	}
	*dst = string(data)
	return nil
}

func isWriteError(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr)
}

// SanitizeFilename оставляет только базовое имя без управляющих символов
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)

	var builder strings.Builder
	for _, r := range filename {
		if r >= 32 && r != 127 {
			builder.WriteRune(r)
		}
	}

	name := strings.TrimSpace(builder.String())
	if name == "" || name == "." || name == "/" || name == ".." {
		return defaultFileName
	}
	return name
}
