package main

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// deps lists, for each internal package, the internal packages it may import.
var deps = map[string][]string{
	"cli":      {"api", "card", "download", "gallery", "hook", "logging", "model", "s3source", "settings", "store", "tui"},
	"tui":      {"api", "card", "download", "gallery", "hook", "model", "viewport"},
	"download": {"logging", "model", "store"},
	"api":      {"model"},
	"card":     {"model"},
	"gallery":  {"model"},
	"hook":     {"model"},
	"s3source": {"model"},
	"settings": {"store"},
	"logging":  nil,
	"model":    nil,
	"store":    nil,
	"viewport": nil,
}

func main() {
	module, err := modulePath("go.mod")
	if err != nil {
		fmt.Fprintf(os.Stderr, "read go.mod: %v\n", err)
		os.Exit(1)
	}
	internalPrefix := module + "/internal/"

	var problems []string
	err = filepath.WalkDir("internal", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		from := topLevel(strings.TrimPrefix(filepath.ToSlash(path), "internal/"))
		allowedTargets, known := deps[from]
		if !known {
			problems = append(problems, fmt.Sprintf("%s: package %q missing from dependency table", path, from))
			return nil
		}

		file, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, is := range file.Imports {
			imp, err := strconv.Unquote(is.Path.Value)
			if err != nil || !strings.HasPrefix(imp, internalPrefix) {
				continue
			}
			to := topLevel(strings.TrimPrefix(imp, internalPrefix))
			if to == "" || to == from || contains(allowedTargets, to) {
				continue
			}
			problems = append(problems, fmt.Sprintf("%s: %s must not import %s", path, from, to))
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "walk internal: %v\n", err)
		os.Exit(1)
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		fmt.Fprintf(os.Stderr, "%d architecture boundary violation(s):\n", len(problems))
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
		os.Exit(1)
	}
	fmt.Println("architecture boundary check: OK")
}

func modulePath(goMod string) (string, error) {
	f, err := os.Open(goMod)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "module "); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`), nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no module directive in %s", goMod)
}

func topLevel(rel string) string {
	first, _, _ := strings.Cut(rel, "/")
	return first
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
