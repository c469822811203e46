package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_parseServiceAnnotation(t *testing.T) {
	t.Run("it should parse a bare annotation", func(t *testing.T) {
		// GIVEN
		doc := "NewWorkspace prepares the build directory.\n\n@service\n"

		// WHEN
		annotation := parseServiceAnnotation(doc)

		// THEN
		assert.Equal(t, "NewWorkspace prepares the build directory.", annotation.description)
		_, found := annotation.As()
		assert.False(t, found)
		assert.Empty(t, annotation.UnknownProperties())
	})

	t.Run("it should parse the contract", func(t *testing.T) {
		testCases := map[string]string{
			"@service as=Compiler":          "Compiler",
			`@service as="build.Compiler"`:  "build.Compiler",
			"@service as=*Workspace":        "*Workspace",
			"@service   as=runner.Runnable": "runner.Runnable",
		}

		for doc, expected := range testCases {
			t.Run(doc, func(t *testing.T) {
				// WHEN
				as, found := parseServiceAnnotation(doc).As()

				// THEN
				assert.True(t, found)
				assert.Equal(t, expected, as)
			})
		}
	})

	t.Run("it should keep multi lines descriptions", func(t *testing.T) {
		// GIVEN
		doc := "NewGoCompiler compiles\nthe go packages.\n@service as=Compiler\n"

		// WHEN
		annotation := parseServiceAnnotation(doc)

		// THEN
		assert.Equal(t, "NewGoCompiler compiles\nthe go packages.", annotation.description)
	})

	t.Run("it should report unknown properties", func(t *testing.T) {
		// GIVEN
		doc := "@service named=compiler priority=2"

		// WHEN
		unknown := parseServiceAnnotation(doc).UnknownProperties()

		// THEN
		assert.ElementsMatch(t, []string{"named", "priority"}, unknown)
	})
}

func Test_hasServiceAnnotation(t *testing.T) {
	testCases := map[string]bool{
		"@service":                      true,
		"Some doc.\n@service as=Foo\n":  true,
		"@services are great":           false,
		"mentions @service in the text": false,
		"":                              false,
	}

	for doc, expected := range testCases {
		t.Run("it should detect the annotation in "+doc, func(t *testing.T) {
			assert.Equal(t, expected, hasServiceAnnotation(doc))
		})
	}
}
