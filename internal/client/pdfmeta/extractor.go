// Package pdfmeta validates PDF content and reads its document information.
package pdfmeta

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const corruptedPrefix = "Corrupted PDF: "

// Error texts that mean the file itself is structurally broken, as opposed
// to being unreadable for some other reason.
var corruptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)invalid pdf structure`),
	regexp.MustCompile(`(?i)invalid xref`),
	regexp.MustCompile(`(?i)missing pdf header`),
	regexp.MustCompile(`(?i)invalid content stream`),
	regexp.MustCompile(`(?i)file is damaged`),
	regexp.MustCompile(`(?i)corrupt`),
	regexp.MustCompile(`(?i)unexpected end`),
	regexp.MustCompile(`(?i)unexpected eof`),
	regexp.MustCompile(`(?i)bad bfrange`),
	regexp.MustCompile(`(?i)invalid cmap`),
	regexp.MustCompile(`(?i)invalid object number`),
	regexp.MustCompile(`(?i)pdf document version not found`),
	regexp.MustCompile(`(?i)failed to load pdf document`),
	regexp.MustCompile(`(?i)invalid stream`),
	regexp.MustCompile(`(?i)document is encrypted`),
	regexp.MustCompile(`(?i)malformed (pdf )?header`),
}

var headerRe = regexp.MustCompile(`%PDF-(\d\.\d)`)

// Result is either Metadata or an error description.
type Result struct {
	ID          string
	Metadata    *models.DocumentMetadata
	Error       string
	IsCorrupted bool
}

func (r Result) OK() bool { return r.Metadata != nil }

type Extractor struct {
	log logging.Logger
}

var disableConfigOnce sync.Once

func NewExtractor(log logging.Logger) *Extractor {
	// Keep pdfcpu from creating a config directory under the user's home.
	disableConfigOnce.Do(func() { model.ConfigPath = "disable" })
	return &Extractor{log: log}
}

// Classify turns a parse failure into a user-facing message and the
// corruption flag.
func Classify(err error) (string, bool) {
	msg := "Failed to parse PDF"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	for _, re := range corruptionPatterns {
		if re.MatchString(msg) {
			return corruptedPrefix + msg, true
		}
	}
	return msg, false
}

// Extract never returns an error; failures are described in the Result.
func (e *Extractor) Extract(ctx context.Context, id string, data []byte) Result {
	meta, err := e.parse(ctx, data)
	if err != nil {
		msg, corrupted := Classify(err)
		e.log.Info(ctx, "pdf parse failed", "doc_id", id, "err", err, "corrupted", corrupted)
		return Result{ID: id, Error: msg, IsCorrupted: corrupted}
	}
	return Result{ID: id, Metadata: meta}
}

func (e *Extractor) parse(ctx context.Context, data []byte) (meta *models.DocumentMetadata, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("invalid pdf structure: %v", p)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("failed to load pdf document: empty file")
	}
	head := data[:min(len(data), 1024)]
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, errors.New("missing pdf header")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	meta = &models.DocumentMetadata{
		PageCount: r.NumPage(),
		FileSize:  int64(len(data)),
	}
	if m := headerRe.FindSubmatch(head); m != nil {
		meta.PDFVersion = strPtr(string(m[1]))
	}

	info := r.Trailer().Key("Info")
	if !info.IsNull() {
		meta.Title = text(info, "Title")
		meta.Author = text(info, "Author")
		meta.Subject = text(info, "Subject")
		meta.Keywords = text(info, "Keywords")
		meta.Creator = text(info, "Creator")
		meta.Producer = text(info, "Producer")
		meta.CreationDate = text(info, "CreationDate")
		meta.ModDate = text(info, "ModDate")
	}
	return meta, nil
}

func text(info pdf.Value, key string) *string {
	v := info.Key(key)
	if v.Kind() != pdf.String {
		return nil
	}
	return strPtr(v.Text())
}

// strPtr returns nil for blank strings.
func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
