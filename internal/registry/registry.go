// Package registry maps a (category, source format, target format) pair to
// the execution strategy that performs the conversion.
//
// The tables are static. Document pairs resolve to either the document suite
// or a bundled program; a bundled override is authoritative for its pair, so
// a missing program makes the pair unsupported rather than falling back to
// the suite.
package registry

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"converteasy/internal/logging"
	"converteasy/internal/task"
)

// Kind identifies which external capability executes a conversion.
type Kind string

const (
	// KindTranscoder runs the media transcoder with a per-target profile.
	KindTranscoder Kind = "transcoder"
	// KindDocumentSuite runs the general-purpose document suite.
	KindDocumentSuite Kind = "document_suite"
	// KindBundled runs a bundled converter program as program -i in -o out.
	KindBundled Kind = "bundled"
	// KindImageTool runs the image-processing program.
	KindImageTool Kind = "image_tool"
)

// Strategy is the resolved execution plan for one conversion pair.
type Strategy struct {
	Kind    Kind
	Program string // bundled or image program name, empty otherwise
}

type formatPair struct {
	source string
	target string
}

// ImageProgram is the single program handling every image-category pair.
const ImageProgram = "image_convert"

// targetSources keeps target ordering deterministic for discovery responses.
type targetSources struct {
	target  string
	sources []string
}

var documentSuitePairs = []targetSources{
	{"pdf", []string{"doc", "docx", "ppt", "pptx", "xls", "xlsx", "txt", "rtf"}},
	{"doc", []string{"docx", "rtf", "txt", "odt", "html", "pdf"}},
	{"docx", []string{"doc", "rtf", "txt", "odt", "html", "pdf"}},
	{"xlsx", []string{"xls", "ods", "csv", "txt", "pdf", "doc"}},
	{"xls", []string{"xlsx", "ods", "csv", "txt", "pdf", "doc"}},
	{"pptx", []string{"ppt", "odp", "pdf"}},
	{"ppt", []string{"pptx", "odp", "pdf"}},
	{"txt", []string{"doc", "docx", "rtf", "odt", "pdf", "xls", "xlsx"}},
	{"rtf", []string{"doc", "docx", "txt", "odt"}},
	{"html", []string{"pdf", "doc", "docx"}},
}

var audioPairs = []targetSources{
	{"mp3", []string{"mp3", "wav", "aac", "flac", "m4a", "ogg", "wma"}},
	{"wav", []string{"wav", "mp3", "aac", "flac", "m4a", "ogg", "wma"}},
	{"aac", []string{"aac", "mp3", "wav", "m4a", "flac"}},
	{"flac", []string{"flac", "wav", "mp3", "aac"}},
	{"ogg", []string{"ogg", "mp3", "wav", "flac"}},
	{"m4a", []string{"m4a", "mp3", "wav", "aac"}},
}

var imagePairs = []targetSources{
	{"jpg", []string{"png", "bmp", "gif", "webp", "tiff", "pdf"}},
	{"png", []string{"jpg", "bmp", "gif", "webp", "tiff", "pdf"}},
	{"webp", []string{"jpg", "png", "bmp", "gif"}},
	{"bmp", []string{"jpg", "png", "gif"}},
	{"pdf", []string{"jpg", "png", "bmp", "gif", "webp", "tiff"}},
}

// Bundled programs claim their pair outright. The suite never backs them up
// because its output quality for these pairs is unacceptable.
var bundledOverrides = map[formatPair]string{
	{"pdf", "doc"}:   "pdf_to_doc",
	{"pdf", "docx"}:  "pdf_to_doc",
	{"pdf", "txt"}:   "pdf_to_txt",
	{"pdf", "xls"}:   "pdf_to_xls",
	{"pdf", "xlsx"}:  "pdf_to_xls",
	{"pdf", "ppt"}:   "pdf_to_ppt",
	{"pdf", "pptx"}:  "pdf_to_ppt",
	{"doc", "html"}:  "doc_to_html",
	{"docx", "html"}: "doc_to_html",
	{"xls", "doc"}:   "xls_to_doc",
	{"xlsx", "doc"}:  "xls_to_doc",
	{"xls", "docx"}:  "xls_to_doc",
	{"xlsx", "docx"}: "xls_to_doc",
	{"xls", "txt"}:   "xls_to_txt",
	{"xlsx", "txt"}:  "xls_to_txt",
	{"txt", "doc"}:   "txt_to_word",
	{"txt", "docx"}:  "txt_to_word",
	{"txt", "xls"}:   "txt_to_xls",
	{"txt", "xlsx"}:  "txt_to_xls",
	{"html", "doc"}:  "html_to_word",
	{"html", "docx"}: "html_to_word",
	{"html", "pdf"}:  "html_to_pdf",
}

// pdfExtractorPrograms are the fallback extractors behind the pdf_to_doc
// override. They never claim a pair themselves, but a host carrying only
// pdf_to_doc loses the extraction fallbacks, so validation and the
// dependency report track them alongside the override programs.
var pdfExtractorPrograms = []string{"pdf_to_doc_stream", "pdf_to_doc_tables"}

var allowedExtensions = map[task.Category][]string{
	task.CategoryDocument: {"pdf", "doc", "docx", "ppt", "pptx", "xls", "xlsx", "txt", "rtf", "html"},
	task.CategoryAudio:    {"mp3", "wav", "aac", "flac", "m4a", "ogg", "wma"},
	task.CategoryImage:    {"jpg", "jpeg", "png", "bmp", "gif", "webp", "tiff", "pdf"},
}

// Registry resolves conversion pairs against the static tables and the
// bundled programs actually installed on disk.
type Registry struct {
	programDir string
}

// New builds a registry over the given bundled-program directory.
func New(programDir string) *Registry {
	return &Registry{programDir: programDir}
}

// NormalizeFormat lowercases a format token, strips a leading dot, and folds
// the jpeg alias onto jpg.
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if f == "jpeg" {
		f = "jpg"
	}
	return f
}

// IsAllowedExtension reports whether a source extension is accepted for the
// category at all, before any pair lookup.
func (r *Registry) IsAllowedExtension(category task.Category, ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range allowedExtensions[category] {
		if ext == allowed {
			return true
		}
	}
	return false
}

// AllowedExtensions returns the accepted source extensions for a category.
func (r *Registry) AllowedExtensions(category task.Category) []string {
	exts := allowedExtensions[category]
	cp := make([]string, len(exts))
	copy(cp, exts)
	return cp
}

// Lookup resolves the strategy for one pair. The second return is false when
// the pair is unsupported, including when a bundled override's program is not
// installed.
func (r *Registry) Lookup(category task.Category, source, target string) (Strategy, bool) {
	source = NormalizeFormat(source)
	target = NormalizeFormat(target)
	if source == "" || target == "" {
		return Strategy{}, false
	}

	switch category {
	case task.CategoryAudio:
		if pairListed(audioPairs, source, target) {
			return Strategy{Kind: KindTranscoder}, true
		}
	case task.CategoryImage:
		if pairListed(imagePairs, source, target) {
			return Strategy{Kind: KindImageTool, Program: ImageProgram}, true
		}
	case task.CategoryDocument:
		if program, ok := bundledOverrides[formatPair{source, target}]; ok {
			if !r.ProgramInstalled(program) {
				return Strategy{}, false
			}
			return Strategy{Kind: KindBundled, Program: program}, true
		}
		if pairListed(documentSuitePairs, source, target) {
			return Strategy{Kind: KindDocumentSuite}, true
		}
	}
	return Strategy{}, false
}

// SupportedTargets lists the targets reachable from a source extension, in
// table order. Bundled pairs appear only when their program is installed.
func (r *Registry) SupportedTargets(category task.Category, source string) []string {
	source = NormalizeFormat(source)
	var targets []string
	for _, entry := range pairsFor(category) {
		if _, ok := r.Lookup(category, source, entry.target); ok {
			targets = append(targets, entry.target)
		}
	}
	return targets
}

// Conversions returns the full target-to-sources table for a category, used
// by the format discovery endpoint.
func (r *Registry) Conversions(category task.Category) map[string][]string {
	out := make(map[string][]string)
	for _, entry := range pairsFor(category) {
		sources := make([]string, len(entry.sources))
		copy(sources, entry.sources)
		out[entry.target] = sources
	}
	if category == task.CategoryDocument {
		for pair := range bundledOverrides {
			if !r.ProgramInstalled(bundledOverrides[pair]) {
				continue
			}
			if !containsString(out[pair.target], pair.source) {
				out[pair.target] = append(out[pair.target], pair.source)
				sort.Strings(out[pair.target])
			}
		}
	}
	return out
}

// Validate checks every bundled override against the program directory and
// returns the sorted set of missing programs. Missing programs are not fatal;
// their pairs simply report unsupported.
func (r *Registry) Validate(logger *slog.Logger) []string {
	log := logging.NewComponentLogger(logger, "registry")

	missing := make(map[string]struct{})
	for _, program := range bundledOverrides {
		if !r.ProgramInstalled(program) {
			missing[program] = struct{}{}
		}
	}
	for _, program := range pdfExtractorPrograms {
		if !r.ProgramInstalled(program) {
			missing[program] = struct{}{}
		}
	}
	if !r.ProgramInstalled(ImageProgram) {
		missing[ImageProgram] = struct{}{}
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Warn("bundled program not installed; its pairs are unsupported",
			logging.String("program", name),
			logging.String("program_dir", r.programDir),
		)
	}
	return names
}

// ProgramPath returns the absolute invocation path for a bundled program.
func (r *Registry) ProgramPath(program string) string {
	return filepath.Join(r.programDir, program)
}

// BundledPrograms lists the distinct bundled program names the document
// tables reference, including the pdf extraction fallbacks, sorted.
func BundledPrograms() []string {
	seen := make(map[string]struct{})
	for _, program := range bundledOverrides {
		seen[program] = struct{}{}
	}
	for _, program := range pdfExtractorPrograms {
		seen[program] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProgramInstalled reports whether a bundled program exists on disk.
func (r *Registry) ProgramInstalled(program string) bool {
	info, err := os.Stat(r.ProgramPath(program))
	return err == nil && info.Mode().IsRegular()
}

func pairsFor(category task.Category) []targetSources {
	switch category {
	case task.CategoryDocument:
		return documentSuitePairs
	case task.CategoryAudio:
		return audioPairs
	case task.CategoryImage:
		return imagePairs
	default:
		return nil
	}
}

func pairListed(pairs []targetSources, source, target string) bool {
	for _, entry := range pairs {
		if entry.target == target {
			return containsString(entry.sources, source)
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
