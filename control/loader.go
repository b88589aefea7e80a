// control/loader.go
// Author: momentics <momentics@gmail.com>
//
// YAML configuration loading.

package control

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeYAML decodes a YAML document from r into dst. Fields absent from
// the document keep the values already in dst; unknown keys are rejected.
func DecodeYAML(r io.Reader, dst any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// LoadYAML reads the file at path and decodes it into dst.
func LoadYAML(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return DecodeYAML(bytes.NewReader(data), dst)
}
