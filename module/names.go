package module

import (
	"regexp"
	"strings"
	"unicode"

	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
)

// EntryPointPrefix is prepended to the camel-cased module name to form the
// entry point symbol.
const EntryPointPrefix = "Init"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EntryPointName returns the symbol a host loader resolves for module name.
// Underscore-separated words are camel-cased: "project" becomes
// "InitProject" and "my_ext" becomes "InitMyExt". The mapping is not
// injective: "my_ext", "myExt" and "my__ext" all yield "InitMyExt", so only
// one of them can be defined in a process.
func EntryPointName(name string) string {
	var b strings.Builder
	b.WriteString(EntryPointPrefix)
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// ValidateName checks a module name. It returns an *errors.InvalidNameError.
func ValidateName(name string) error {
	if reason := identifierProblem(name); reason != "" {
		return &nmerrors.InvalidNameError{Name: name, Reason: reason}
	}
	return nil
}

func validateExportName(module, name string) error {
	if reason := identifierProblem(name); reason != "" {
		return &nmerrors.InvalidNameError{Module: module, Name: name, Reason: reason}
	}
	return nil
}

func identifierProblem(name string) string {
	switch {
	case name == "":
		return "cannot be empty"
	case !identifierPattern.MatchString(name):
		return "must match " + identifierPattern.String()
	}
	return ""
}
