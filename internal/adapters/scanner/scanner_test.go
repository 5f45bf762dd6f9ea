package scanner_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/spark/internal/adapters/scanner"
	"go.trai.ch/spark/internal/core/domain"
)

func specifiers(spans []domain.ImportSpan) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, s.Specifier)
	}
	return out
}

func TestScan_StaticImports(t *testing.T) {
	src := []byte(`import a from "./a.js";
import { b } from './b.js';
import * as c from "lit";
import "./side-effect.js";
export { d } from "./d.js";
export * from "./e.js";
const x = 1;
`)

	spans, err := scanner.New().Scan(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"./a.js", "./b.js", "lit", "./side-effect.js", "./d.js", "./e.js"},
		specifiers(spans))

	for _, s := range spans {
		assert.Equal(t, s.Specifier, string(src[s.Start:s.End]))
		assert.False(t, s.Dynamic)
	}
}

func TestScan_DynamicImports(t *testing.T) {
	src := []byte("const m = await import('./lazy.js');\nconst n = import(`./tpl.js`);\nconst o = import(name);\nconst p = import(`./${name}.js`);\n")

	spans, err := scanner.New().Scan(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "./lazy.js", spans[0].Specifier)
	assert.True(t, spans[0].Dynamic)
	assert.Equal(t, "./tpl.js", spans[1].Specifier)
	assert.Equal(t, "./tpl.js", string(src[spans[1].Start:spans[1].End]))
}

func TestScan_IgnoresLocalExportsAndStrings(t *testing.T) {
	src := []byte(`export const x = "./not-an-import.js";
export default function f() { return require("./cjs.js"); }
`)

	spans, err := scanner.New().Scan(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestScan_ConcurrentUse(t *testing.T) {
	s := scanner.New()
	src := []byte(`import a from "./a.js"; import b from "./b.js";`)

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			spans, err := s.Scan(context.Background(), src)
			assert.NoError(t, err)
			assert.Len(t, spans, 2)
		})
	}
	wg.Wait()
}
