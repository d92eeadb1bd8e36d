package assets

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAssetName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "simple name", input: "print", wantErr: nil},
		{name: "name with hyphen", input: "large-print", wantErr: nil},
		{name: "name with underscore", input: "my_style", wantErr: nil},
		{name: "name with numbers", input: "style123", wantErr: nil},
		{name: "mixed case", input: "Compact", wantErr: nil},
		{name: "max length", input: strings.Repeat("a", maxAssetNameLength), wantErr: nil},

		{name: "empty name", input: "", wantErr: ErrInvalidAssetName},
		{name: "too long", input: strings.Repeat("a", maxAssetNameLength+1), wantErr: ErrInvalidAssetName},
		{name: "forward slash", input: "path/to/style", wantErr: ErrInvalidAssetName},
		{name: "backslash", input: `path\to\style`, wantErr: ErrInvalidAssetName},
		{name: "parent traversal", input: "../secret", wantErr: ErrInvalidAssetName},
		{name: "extension", input: "print.css", wantErr: ErrInvalidAssetName},
		{name: "hidden file", input: ".hidden", wantErr: ErrInvalidAssetName},
		{name: "space", input: "my style", wantErr: ErrInvalidAssetName},
		{name: "null byte", input: "print\x00", wantErr: ErrInvalidAssetName},
		{name: "non-ascii letter", input: "styleé", wantErr: ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateAssetName(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAssetName(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAssetName_MessageIncludesName(t *testing.T) {
	t.Parallel()

	err := ValidateAssetName("../evil")
	if err == nil {
		t.Fatal("expected error for invalid name")
	}
	if !strings.Contains(err.Error(), "../evil") {
		t.Errorf("error %q should quote the rejected name", err)
	}
}
