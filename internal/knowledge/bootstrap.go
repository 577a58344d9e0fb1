package knowledge

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
)

const (
	CategoryQuality       = "quality"
	CategorySecurity      = "security"
	CategoryPerformance   = "performance"
	CategoryDocumentation = "documentation"
)

type bootstrapDoc struct {
	title    string
	text     string
	category string
	language string
	severity string
}

// bootstrapCorpus - стартовый набор best practices, загружается при старте.
var bootstrapCorpus = []bootstrapDoc{
	{
		title:    "Keep functions short",
		text:     "A function should do one thing. Functions longer than 20-30 lines usually mix responsibilities and should be split into smaller functions.",
		category: CategoryQuality,
		language: domain.LanguageGeneral,
		severity: "warning",
	},
	{
		title:    "Use meaningful variable names",
		text:     "Variable names must state their purpose. Prefer concrete names like user_count, temperature_celsius or customer_data over vague ones like x, temp or data.",
		category: CategoryQuality,
		language: domain.LanguageGeneral,
		severity: "info",
	},
	{
		title:    "Eliminate code duplication",
		text:     "Follow the DRY principle: extract repeated code into functions or classes. Duplicated logic makes maintenance harder because every fix must be applied in several places.",
		category: CategoryQuality,
		language: domain.LanguageGeneral,
		severity: "warning",
	},
	{
		title:    "Follow the PEP 8 style guide",
		text:     "Follow PEP 8, the official Python style guide: 4-space indentation, line length under 79 characters, two blank lines between top-level functions and classes.",
		category: CategoryQuality,
		language: "python",
		severity: "info",
	},
	{
		title:    "Prefer list comprehensions",
		text:     "Simple loops that build a list can be replaced with a comprehension, e.g. [x*2 for x in range(10)]. Comprehensions are more idiomatic Python and often faster.",
		category: CategoryQuality,
		language: "python",
		severity: "info",
	},
	{
		title:    "Catch specific exceptions",
		text:     "Never use a bare except: clause. Name the exception types you expect, e.g. except ValueError: or except (TypeError, ValueError):, so unrelated errors are not silently swallowed.",
		category: CategoryQuality,
		language: "python",
		severity: "warning",
	},
	{
		title:    "Use const and let instead of var",
		text:     "Replace var with const for bindings that are never reassigned and let for ones that are. var is function-scoped and hoisted, which leads to subtle bugs.",
		category: CategoryQuality,
		language: "javascript",
		severity: "warning",
	},
	{
		title:    "Use strict equality",
		text:     "Use === instead of ==. Strict equality also compares types and avoids surprising implicit coercions like '' == 0 being true.",
		category: CategoryQuality,
		language: "javascript",
		severity: "warning",
	},
	{
		title:    "Prefer arrow functions for small callbacks",
		text:     "Short callbacks read better as arrow functions, e.g. const add = (a, b) => a + b. Arrow functions also capture this lexically.",
		category: CategoryQuality,
		language: "javascript",
		severity: "info",
	},
	{
		title:    "Prevent SQL injection",
		text:     "Never interpolate user input directly into SQL queries. Use parameterized queries or an ORM so attacker-controlled strings cannot change query structure.",
		category: CategorySecurity,
		language: domain.LanguageGeneral,
		severity: "critical",
	},
	{
		title:    "No hardcoded secrets",
		text:     "API keys, passwords and tokens must never be written into source code. Load sensitive values from environment variables or a secrets manager.",
		category: CategorySecurity,
		language: domain.LanguageGeneral,
		severity: "critical",
	},
	{
		title:    "Validate all input",
		text:     "Every external input must be validated: check length, format and allowed characters before use, and reject anything that does not match expectations.",
		category: CategorySecurity,
		language: domain.LanguageGeneral,
		severity: "warning",
	},
	{
		title:    "Mind algorithmic complexity",
		text:     "Choose algorithms with the data size in mind. An O(n log n) approach beats O(n^2) on large inputs; nested loops over the same collection are a common red flag.",
		category: CategoryPerformance,
		language: domain.LanguageGeneral,
		severity: "info",
	},
	{
		title:    "Optimize database queries",
		text:     "Avoid N+1 query patterns, add indexes for frequent lookups and select only the columns you actually need instead of fetching whole rows.",
		category: CategoryPerformance,
		language: domain.LanguageGeneral,
		severity: "warning",
	},
	{
		title:    "Avoid memory leaks",
		text:     "Drop references to objects you no longer need and detach event listeners when their owner goes away, otherwise long-lived processes accumulate garbage that is never collected.",
		category: CategoryPerformance,
		language: domain.LanguageGeneral,
		severity: "warning",
	},
	{
		title:    "Document public interfaces",
		text:     "Every public function, class and module needs a short doc comment stating what it does, its parameters and its return value. Undocumented public APIs force readers into the implementation.",
		category: CategoryDocumentation,
		language: domain.LanguageGeneral,
		severity: "warning",
	},
	{
		title:    "Explain why, not what",
		text:     "Inline comments should explain intent and non-obvious constraints, not restate the code. A comment that repeats the next line adds noise and rots quickly.",
		category: CategoryDocumentation,
		language: domain.LanguageGeneral,
		severity: "info",
	},
	{
		title:    "Keep docs close to code",
		text:     "Docstrings and comments live next to the code they describe and must be updated in the same change. Stale documentation is worse than none.",
		category: CategoryDocumentation,
		language: domain.LanguageGeneral,
		severity: "info",
	},
}

// IngestBootstrapCorpus загружает встроенный корпус. Ингест идёт
// параллельно с ограничением, первая ошибка прерывает загрузку.
func (s *Store) IngestBootstrapCorpus(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, d := range bootstrapCorpus {
		d := d
		g.Go(func() error {
			_, err := s.Ingest(ctx, d.text, map[string]string{
				domain.MetaTitle:    d.title,
				domain.MetaCategory: d.category,
				domain.MetaLanguage: d.language,
				domain.MetaSeverity: d.severity,
			})
			return err
		})
	}

	return g.Wait()
}
