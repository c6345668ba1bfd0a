package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/sdk"
)

var (
	targetsAPI  string
	targetsName string
	targetsHash string
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List installed SDK targets",
	Long: `List the platforms and add-ons installed under the configured SDK root,
along with the platform-tools and build-tools revisions. The filters
select a single target by API level, display name, or hash string.`,
	RunE: runTargets,
}

func init() {
	rootCmd.AddCommand(targetsCmd)
	targetsCmd.Flags().StringVar(&targetsAPI, "api", "", "only the target with this API level or preview code name")
	targetsCmd.Flags().StringVar(&targetsName, "name", "", "only the target with this display name")
	targetsCmd.Flags().StringVar(&targetsHash, "hash", "", "only the target with this hash string")
}

func runTargets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Close() }()

	handle, err := resolveSdk(cfg, log)
	if err != nil {
		return err
	}
	defer handle.Release()

	targets, err := selectTargets(handle)
	if err != nil {
		return err
	}

	fmt.Printf("SDK: %s\n", handle.Path())
	if rev, ok := handle.PlatformToolsRevision(); ok {
		fmt.Printf("Platform-tools: %s\n", rev)
	}
	if rev, ok := handle.ToolsRevision(); ok {
		fmt.Printf("Tools: %s\n", rev)
	}
	if bt, ok := handle.LatestBuildTool(); ok {
		fmt.Printf("Build-tools: %s\n", bt.Revision)
	}
	fmt.Println()

	for _, t := range targets {
		printTarget(t)
	}
	return nil
}

// selectTargets applies the identity filters. Each filter maps to one
// accessor lookup and yields at most one target; without filters the full
// enumeration is returned.
func selectTargets(handle *sdk.Handle) ([]sdk.Target, error) {
	switch {
	case targetsAPI != "":
		t, ok := handle.FindTargetByAPILevel(targetsAPI)
		if !ok {
			return nil, errors.NewNotFoundError("target", targetsAPI)
		}
		return []sdk.Target{t}, nil
	case targetsName != "":
		t, ok := handle.FindTargetByName(targetsName)
		if !ok {
			return nil, errors.NewNotFoundError("target", targetsName)
		}
		return []sdk.Target{t}, nil
	case targetsHash != "":
		t, ok := handle.FindTargetByHash(targetsHash)
		if !ok {
			return nil, errors.NewNotFoundError("target", targetsHash)
		}
		return []sdk.Target{t}, nil
	default:
		return handle.Targets(), nil
	}
}

func printTarget(t sdk.Target) {
	kind := "add-on"
	if t.IsPlatform() {
		kind = "platform"
	}

	fmt.Printf("%s\n", t.HashString())
	fmt.Printf("    Name: %s\n", t.Name())
	fmt.Printf("    Kind: %s, revision %s\n", kind, t.Revision())
	if t.Version().IsPreview() {
		fmt.Printf("    API: %s (preview)\n", t.Version())
	} else {
		fmt.Printf("    API: %s\n", sdk.AndroidName(t.Version().Level))
	}
	fmt.Println()
}
