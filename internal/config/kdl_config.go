package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load options from a .fastpack.kdl file. Returns
// (nil, nil) when no KDL config exists.
func LoadKDL(projectRoot string) (*Options, error) {
	kdlPath := filepath.Join(projectRoot, KDLConfigName)

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KDLConfigName, err)
	}

	opts, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}
	if opts.Cwd == "" {
		opts.Cwd = projectRoot
	}
	return opts, nil
}

// parseKDL maps a KDL document onto Options. Layout:
//
//	input "./src/main.js" "./src/worker.js"
//	output {
//	    dir "dist"
//	    format "esm"
//	    entry_filenames "[name]-[hash].js"
//	    global_name "MyLib"
//	    sourcemap true
//	}
//	platform "browser"
//	external "node:*" "react"
func parseKDL(content string) (*Options, error) {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	opts := &Options{}
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "input":
			opts.Input = append(opts.Input, stringArgs(n)...)
		case "external":
			opts.External = append(opts.External, stringArgs(n)...)
		case "platform":
			if s, ok := firstStringArg(n); ok {
				opts.Platform = Platform(s)
			}
		case "watch":
			if b, ok := firstBoolArg(n); ok {
				opts.Watch = b
			}
		case "output":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "dir":
					if s, ok := firstStringArg(cn); ok {
						opts.OutDir = s
					}
				case "format":
					if s, ok := firstStringArg(cn); ok {
						opts.Format = OutputFormat(s)
					}
				case "entry_filenames":
					if s, ok := firstStringArg(cn); ok {
						opts.EntryFileNames = s
					}
				case "global_name":
					if s, ok := firstStringArg(cn); ok {
						opts.GlobalName = s
					}
				case "sourcemap":
					if b, ok := firstBoolArg(cn); ok {
						opts.Sourcemap = b
					}
				}
			}
		}
	}
	return opts, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func stringArgs(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments))
	for _, arg := range n.Arguments {
		if s, ok := arg.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
