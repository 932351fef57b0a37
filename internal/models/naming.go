package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/schemakit/internal/apperr"
)

// FileExt is the extension of every stored document.
const FileExt = ".yaml"

// EnumeratorFamilyName is the file prefix of enumerator documents.
const EnumeratorFamilyName = "enumerations"

// ConfigVersion identifies a dictionary or type document version.
type ConfigVersion struct {
	Major       int
	Minor       int
	Patch       int
	Enumerators int
}

func (v ConfigVersion) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Enumerators)
}

// Compare orders versions numerically component by component.
func (v ConfigVersion) Compare(o ConfigVersion) int {
	for _, d := range [...]int{
		v.Major - o.Major,
		v.Minor - o.Minor,
		v.Patch - o.Patch,
		v.Enumerators - o.Enumerators,
	} {
		switch {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
	}
	return 0
}

// MarshalText renders the version in dotted form.
func (v ConfigVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses the dotted form.
func (v *ConfigVersion) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVersion parses "major.minor.patch.enumerators".
func ParseVersion(s string) (ConfigVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return ConfigVersion{}, fmt.Errorf("%w: version %q must have 4 components", apperr.ErrInvalidDocument, s)
	}
	nums, err := parseComponents(parts)
	if err != nil {
		return ConfigVersion{}, fmt.Errorf("version %q: %w", s, err)
	}
	return ConfigVersion{Major: nums[0], Minor: nums[1], Patch: nums[2], Enumerators: nums[3]}, nil
}

// ConfigFileName formats "<name>.<major>.<minor>.<patch>.<enumerators>.yaml".
func ConfigFileName(name string, v ConfigVersion) string {
	return name + "." + v.String() + FileExt
}

// ParseConfigFileName splits a dictionary or type file name into its
// family name and version.
func ParseConfigFileName(fileName string) (string, ConfigVersion, error) {
	base, ok := strings.CutSuffix(fileName, FileExt)
	if !ok {
		return "", ConfigVersion{}, fmt.Errorf("%w: %q is not a %s file", apperr.ErrInvalidDocument, fileName, FileExt)
	}
	parts := strings.Split(base, ".")
	if len(parts) < 5 {
		return "", ConfigVersion{}, fmt.Errorf("%w: %q has no version suffix", apperr.ErrInvalidDocument, fileName)
	}
	name := strings.Join(parts[:len(parts)-4], ".")
	if err := ValidateFamilyName(name); err != nil {
		return "", ConfigVersion{}, fmt.Errorf("%w: %q: %w", apperr.ErrInvalidDocument, fileName, err)
	}
	v, err := ParseVersion(strings.Join(parts[len(parts)-4:], "."))
	if err != nil {
		return "", ConfigVersion{}, err
	}
	return name, v, nil
}

// ValidateFamilyName checks that name can prefix a stored file name.
func ValidateFamilyName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: family name is empty", apperr.ErrInvalidOperation)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: family name %q starts with '.'", apperr.ErrInvalidOperation, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: family name %q contains a path separator", apperr.ErrInvalidOperation, name)
	}
	return nil
}

// EnumeratorFileName formats "enumerations.<version>.yaml".
func EnumeratorFileName(version int) string {
	return EnumeratorFamilyName + "." + strconv.Itoa(version) + FileExt
}

// ParseEnumeratorFileName extracts the version of an enumerator file.
func ParseEnumeratorFileName(fileName string) (int, error) {
	base, ok := strings.CutSuffix(fileName, FileExt)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a %s file", apperr.ErrInvalidDocument, fileName, FileExt)
	}
	num, ok := strings.CutPrefix(base, EnumeratorFamilyName+".")
	if !ok {
		return 0, fmt.Errorf("%w: %q is not an enumerator file", apperr.ErrInvalidDocument, fileName)
	}
	nums, err := parseComponents([]string{num})
	if err != nil {
		return 0, fmt.Errorf("enumerator file %q: %w", fileName, err)
	}
	return nums[0], nil
}

func parseComponents(parts []string) ([]int, error) {
	out := make([]int, len(parts))
	for i, p := range parts {
		// Only the canonical form is accepted so that every version has
		// exactly one file name.
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || p != strconv.Itoa(n) {
			return nil, fmt.Errorf("%w: %q is not a canonical non-negative integer", apperr.ErrInvalidDocument, p)
		}
		out[i] = n
	}
	return out, nil
}

// StoragePath returns the store-relative path of a document file.
func StoragePath(kind DocumentKind, fileName string) string {
	return string(kind) + "/" + fileName
}

// ParseStoragePath splits a store-relative path into kind and file name.
func ParseStoragePath(path string) (DocumentKind, string, error) {
	dir, fileName, ok := strings.Cut(path, "/")
	if !ok || fileName == "" || strings.Contains(fileName, "/") {
		return "", "", fmt.Errorf("%w: unexpected document path %q", apperr.ErrInvalidDocument, path)
	}
	kind, err := ParseDocumentKind(dir)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", apperr.ErrInvalidDocument, err)
	}
	return kind, fileName, nil
}
