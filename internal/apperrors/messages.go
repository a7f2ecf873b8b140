// messages.go is the localized-message catalog. The core only ever selects an
// error kind; rendering the human-readable text (and choosing a language) is
// an edge concern handled here so API handlers stay free of copy.
package apperrors

import "fmt"

// message condition keys.
const (
	condCategoryNotFound    = "category-not-found"
	condSubCategoryNotFound = "sub-category-not-found"
	condActionTypeNotFound  = "action-type-not-found"
	condResourceNotFound    = "resource-not-found"
	condStoreFailure        = "store-failure"
)

// DefaultLocale is used when the requested locale has no catalog.
const DefaultLocale = "en"

// catalog maps locale → condition → format string. Every format string takes
// a single %s argument: the offending identifier.
var catalog = map[string]map[string]string{
	"en": {
		condCategoryNotFound:    "category %q was not found",
		condSubCategoryNotFound: "sub-category %q was not found",
		condActionTypeNotFound:  "action type %q was not found",
		condResourceNotFound:    "%s was not found",
		condStoreFailure:        "the operation could not be completed%s", // no identifier to show
	},
	"es": {
		condCategoryNotFound:    "no se encontró la categoría %q",
		condSubCategoryNotFound: "no se encontró la subcategoría %q",
		condActionTypeNotFound:  "no se encontró el tipo de acción %q",
		condResourceNotFound:    "no se encontró %s",
		condStoreFailure:        "no se pudo completar la operación%s",
	},
}

// conditionFor maps a reference kind to its catalog condition.
func conditionFor(kind ReferenceKind) string {
	switch kind {
	case ReferenceCategory:
		return condCategoryNotFound
	case ReferenceSubCategory:
		return condSubCategoryNotFound
	case ReferenceActionType:
		return condActionTypeNotFound
	default:
		return condResourceNotFound
	}
}

// render looks up a condition in the catalog, falling back to the default
// locale for unknown languages.
func render(locale, condition string, arg interface{}) string {
	msgs, ok := catalog[locale]
	if !ok {
		msgs = catalog[DefaultLocale]
	}
	format, ok := msgs[condition]
	if !ok {
		format = catalog[DefaultLocale][condition]
	}
	return fmt.Sprintf(format, arg)
}

// Localize renders a caller-facing message for err in the requested locale.
// Cross-organization misses render exactly like plain misses. Unknown error
// values render as a generic store failure so internals never leak.
func Localize(err error, locale string) string {
	switch e := err.(type) {
	case *ValidationError:
		parts := make([]string, 0, len(e.Unresolved))
		for _, ref := range e.Unresolved {
			parts = append(parts, render(locale, conditionFor(ref.Kind), ref.ID))
		}
		msg := parts[0]
		for _, p := range parts[1:] {
			msg += "; " + p
		}
		return msg
	case *NotFoundError:
		return render(locale, condResourceNotFound, e.Resource)
	default:
		return render(locale, condStoreFailure, "")
	}
}
