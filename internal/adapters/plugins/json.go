package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
)

// ErrInvalidJSON is returned for JSON files that do not parse.
var ErrInvalidJSON = zerr.New("invalid JSON")

type jsonPlugin struct{}

// NewJSON creates the plugin for JSON files. Contents are validated so a
// broken file fails the build instead of the importing module.
func NewJSON() ports.Plugin {
	return jsonPlugin{}
}

func (jsonPlugin) Name() string {
	return "json"
}

func (jsonPlugin) CanHandle(ext string) bool {
	return ext == ".json"
}

func (jsonPlugin) Transform(_ context.Context, in domain.TransformInput) (domain.BuildOutput, error) {
	var v any
	if err := json.Unmarshal(in.Contents, &v); err != nil {
		be := domain.NewBuildError("Invalid JSON", in.Path, zerr.Wrap(ErrInvalidJSON, err.Error()))
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			line, col := position(in.Contents, syntax.Offset)
			be.FileLoc = fmt.Sprintf("%s:%d:%d", in.Path, line, col)
		}
		return nil, be
	}
	return domain.BuildOutput{".json": {Code: string(bytes.TrimSpace(in.Contents))}}, nil
}

// position converts a SyntaxError offset into the 1-based line and column of
// the offending byte. The offset counts that byte.
func position(src []byte, offset int64) (int, int) {
	offset = max(min(offset-1, int64(len(src))), 0)
	before := src[:offset]
	line := bytes.Count(before, []byte("\n")) + 1
	col := len(before) - bytes.LastIndexByte(before, '\n')
	return line, col
}
