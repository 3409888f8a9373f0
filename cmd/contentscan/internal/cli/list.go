package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/contentscan/pkg/content"
)

var listFlags struct {
	config string
	specs  bool
	json   bool
}

var listCmd = &cobra.Command{
	Use:   "list [pattern...]",
	Short: "Resolve content patterns and list matching files",
	Long: `Resolves each pattern into an absolute base and glob suffix, expands
them against the filesystem and lists every matching file.

Patterns follow the declaration syntax: literal paths, globs such as
'src/**/*.html', and '!'-prefixed exclusions that remove matches
contributed by the other patterns.

The --specs flag prints the resolved base/pattern split instead of
expanding it, which is the quickest way to see how a declaration was
interpreted. The --json flag outputs the result as JSON for scripting.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listFlags.config, "config", "",
		"Resolve relative patterns against this config file's directory")
	listCmd.Flags().BoolVar(&listFlags.specs, "specs", false,
		"Print resolved specs instead of expanding them")
	listCmd.Flags().BoolVar(&listFlags.json, "json", false,
		"Output as JSON")

	rootCmd.AddCommand(listCmd)
}

// SpecOutput is the JSON form of one resolved spec.
type SpecOutput struct {
	Original string `json:"original"`
	Base     string `json:"base"`
	Pattern  string `json:"pattern,omitempty"`
	Exclude  bool   `json:"exclude,omitempty"`
}

// ListOutput is the JSON output format for contentscan list.
type ListOutput struct {
	Files []string `json:"files"`
	Count int      `json:"count"`
}

func runList(cmd *cobra.Command, args []string) error {
	tracker, err := newTracker(args, listFlags.config)
	if err != nil {
		return err
	}

	if listFlags.specs {
		return listSpecs(tracker.Specs())
	}

	// A fresh watermark table reports every match.
	changed, err := tracker.ChangedFiles(content.NewModTimes())
	if err != nil {
		return err
	}
	files := changed.Sorted()

	if listFlags.json {
		return outputJSON(ListOutput{Files: files, Count: len(files)})
	}

	if len(files) == 0 {
		fmt.Println("No content files matched")
		return nil
	}
	for _, file := range files {
		fmt.Println(file)
	}
	return nil
}

func listSpecs(specs []content.PathSpec) error {
	if listFlags.json {
		out := make([]SpecOutput, 0, len(specs))
		for _, spec := range specs {
			out = append(out, SpecOutput{
				Original: spec.Original,
				Base:     spec.Base,
				Pattern:  spec.Pattern,
				Exclude:  spec.IsExclusion(),
			})
		}
		return outputJSON(out)
	}

	for _, spec := range specs {
		marker := " "
		if spec.IsExclusion() {
			marker = "!"
		}
		if spec.Pattern == "" {
			fmt.Printf("%s %s\n", marker, spec.Base)
			continue
		}
		fmt.Printf("%s %s :: %s\n", marker, spec.Base, spec.Pattern)
	}
	return nil
}

// newTracker builds a tracker from command-line patterns. A non-empty
// config path switches resolution of relative patterns to its directory.
func newTracker(patterns []string, configPath string) (*content.Tracker, error) {
	sources := make([]content.Source, 0, len(patterns))
	for _, pattern := range patterns {
		sources = append(sources, content.Source{Pattern: pattern})
	}
	return content.New(content.Config{
		Sources:          sources,
		ConfigPath:       configPath,
		RelativeToConfig: configPath != "",
	})
}
