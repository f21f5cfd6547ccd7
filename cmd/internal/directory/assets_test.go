package directory

import (
	"reflect"
	"testing"
)

func TestTemplateAssets_Project(t *testing.T) {
	t.Parallel()

	got := TemplateAssets{
		Images: []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
		Colors: []string{"#000000"},
	}.Project()

	want := AssetSet{
		Images: map[string]string{"default_0": "https://cdn.example.com/a.png", "default_1": "https://cdn.example.com/b.png"},
		Colors: map[string]string{"default_0": "#000000"},
		Fonts:  map[string]string{},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Project()=%#v want=%#v", got, want)
	}
}

func TestMergeAssets_OverrideWins(t *testing.T) {
	t.Parallel()

	base := TemplateAssets{Colors: []string{"default_0"}}.Project()
	overrides := AssetSet{Colors: map[string]string{"default_0": "#FFFFFF"}}

	merged := MergeAssets(base, overrides)
	if got := merged.Colors["default_0"]; got != "#FFFFFF" {
		t.Fatalf("colors.default_0=%q want=#FFFFFF", got)
	}
	if base.Colors["default_0"] != "default_0" {
		t.Fatalf("base must not be mutated, got %q", base.Colors["default_0"])
	}
}

func TestMergeAssets_Cases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		base      map[string]string
		overrides map[string]string
		want      map[string]string
	}{
		{name: "empty both", want: map[string]string{}},
		{name: "base only", base: map[string]string{"default_0": "Inter"}, want: map[string]string{"default_0": "Inter"}},
		{name: "override only", overrides: map[string]string{"custom": "Lora"}, want: map[string]string{"custom": "Lora"}},
		{
			name:      "partial override keeps others",
			base:      map[string]string{"default_0": "Inter", "default_1": "Roboto"},
			overrides: map[string]string{"default_1": "Lora"},
			want:      map[string]string{"default_0": "Inter", "default_1": "Lora"},
		},
		{
			name:      "empty override value still wins",
			base:      map[string]string{"default_0": "Inter"},
			overrides: map[string]string{"default_0": ""},
			want:      map[string]string{"default_0": ""},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := MergeAssets(AssetSet{Fonts: tc.base}, AssetSet{Fonts: tc.overrides})
			if !reflect.DeepEqual(got.Fonts, tc.want) {
				t.Fatalf("fonts=%v want=%v", got.Fonts, tc.want)
			}
		})
	}
}
