package builder

import (
	"context"
	"encoding/json"
	"strings"

	"go.trai.ch/spark/internal/core/domain"
)

const (
	hotMarker    = "import.meta.hot"
	acceptMarker = "import.meta.hot.accept("
	envMarker    = "import.meta.env"
)

// hmrBootstrap binds import.meta.hot to the client runtime.
var hmrBootstrap = "import * as __SPARK_HMR__ from '" + domain.HMRClientPath + "';\n" +
	"import.meta.hot = __SPARK_HMR__.createHotContext(import.meta.url);\n"

// hmrScriptTag loads the client runtime into a page.
var hmrScriptTag = `<script type="module" src="` + domain.HMRClientPath + `"></script>`

// processScript rewrites imports, injects bootstrap code and records the
// module in the dependency graph.
func (b *Builder) processScript(ctx context.Context, key domain.CacheKey, code string) (string, error) {
	rewritten, deps, err := b.rewriteImports(ctx, key.Path, code)
	if err != nil {
		return "", err
	}

	hot := b.hotEnabled(key.Mode) && strings.Contains(rewritten, hotMarker)

	var prelude strings.Builder
	if hot {
		prelude.WriteString(hmrBootstrap)
	}
	if strings.Contains(rewritten, envMarker) {
		prelude.WriteString(b.envAssignment(key.Mode))
	}

	if key.Mode == domain.ModeClient {
		if url, ok := b.mapper.FileToURL(key.Path); ok {
			b.graph.SetEntry(url, deps, hot, hot && strings.Contains(rewritten, acceptMarker))
		}
	}

	if prelude.Len() == 0 {
		return rewritten, nil
	}
	return prelude.String() + rewritten, nil
}

// processPage injects the client runtime into an HTML document.
// Pages are graph roots and never hot-updatable, so a change reloads them.
func (b *Builder) processPage(key domain.CacheKey, page string) string {
	if key.Mode == domain.ModeClient {
		if url, ok := b.mapper.FileToURL(key.Path); ok {
			b.graph.SetEntry(url, nil, false, false)
		}
	}
	if !b.hotEnabled(key.Mode) {
		return page
	}

	lower := strings.ToLower(page)
	if i := strings.Index(lower, "</head>"); i >= 0 {
		return page[:i] + hmrScriptTag + page[i:]
	}
	if i := strings.Index(lower, "<body"); i >= 0 {
		return page[:i] + hmrScriptTag + page[i:]
	}
	return hmrScriptTag + page
}

// envAssignment builds the import.meta.env object. Keys are sorted by the
// JSON encoder so identical inputs frame identically.
func (b *Builder) envAssignment(mode domain.Mode) string {
	env := make(map[string]any, len(b.env)+3)
	for k, v := range b.env {
		env[k] = v
	}
	if b.isDev {
		env["MODE"] = "development"
	} else {
		env["MODE"] = "production"
	}
	env["DEV"] = b.isDev
	env["SSR"] = mode == domain.ModeSSR

	data, err := json.Marshal(env)
	if err != nil {
		data = []byte("{}")
	}
	return "import.meta.env = " + string(data) + ";\n"
}

// Proxy wraps a non-JS output as a JS module and registers it in the graph.
// Stylesheets are injected as <style> elements and accept their own updates;
// everything else is exported as a default value.
func (b *Builder) Proxy(url string, kind string, out domain.OutputFile) string {
	hot := b.hotEnabled(domain.ModeClient)
	// Stylesheet proxies accept their own updates.
	b.graph.SetEntry(url, nil, hot, hot && kind == ".css")

	var code strings.Builder
	if hot {
		code.WriteString(hmrBootstrap)
	}

	switch kind {
	case ".css":
		code.WriteString("const code = " + jsString(out.Code) + ";\n")
		code.WriteString("const styleEl = document.createElement('style');\n")
		code.WriteString("styleEl.setAttribute('data-spark', " + jsString(url) + ");\n")
		code.WriteString("styleEl.appendChild(document.createTextNode(code));\n")
		code.WriteString("document.head.appendChild(styleEl);\n")
		if hot {
			code.WriteString("import.meta.hot.accept();\n")
			code.WriteString("import.meta.hot.dispose(() => { document.head.removeChild(styleEl); });\n")
		}
		code.WriteString("export default code;\n")
	case ".json":
		code.WriteString("export default " + out.Code + ";\n")
	default:
		code.WriteString("export default " + jsString(strings.TrimSuffix(url, domain.ProxySuffix)) + ";\n")
	}
	return code.String()
}

// jsString encodes s as a JS string literal.
func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
