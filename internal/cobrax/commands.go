package cobrax

import (
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func ExitOnHelp(c *cobra.Command) {
	helpFunc := c.HelpFunc()
	c.SetHelpFunc(func(c *cobra.Command, s []string) {
		helpFunc(c, s)
		os.Exit(0)
	})
}

func VersionCmd(title string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(BuildVersionString(title))
			os.Exit(0)
		},
	}
}

// BuildVersionString reports the module version and the VCS revision stamped by the go tool.
func BuildVersionString(title string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return title + " <unknown>"
	}

	revision := "<unknown>"
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			revision = s.Value
		}
	}
	return title + " " + info.Main.Version + " (" + revision + ")"
}
