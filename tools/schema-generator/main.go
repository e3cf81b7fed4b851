// Command schema-generator writes the JSON schema for nudge.yml. It runs via
// `go generate ./config`, so relative paths resolve from the config package.
package main

import (
	"os"
	"path/filepath"

	"github.com/grovetools/nudge/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	output := pflag.StringP("output", "o", filepath.Join("..", "schema", "nudge.schema.json"), "File to write the schema to")
	pflag.Parse()

	schemaBytes, err := config.GenerateSchema()
	if err != nil {
		logrus.Fatalf("Error generating schema: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		logrus.Fatalf("Error creating schema directory: %v", err)
	}
	if err := os.WriteFile(*output, append(schemaBytes, '\n'), 0644); err != nil {
		logrus.Fatalf("Error writing schema file: %v", err)
	}

	logrus.WithField("path", *output).Info("Generated config schema")
}
