package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/johnbanq/meshinstall/cmd/meshinstall/config"
	"github.com/johnbanq/meshinstall/internal/installer"
	"github.com/johnbanq/meshinstall/internal/logging"
	"github.com/johnbanq/meshinstall/internal/psbody"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the tools the installation needs are available",
	RunE:  runDoctor,
}

// SetupDoctorFlags configures doctor-specific flags. The acquisition mode
// changes which tools are required, so doctor accepts the same
// --source-archive flag as install.
func SetupDoctorFlags() {
	doctorCmd.Flags().BoolVar(&config.Global.SourceArchive, "source-archive", false,
		"check the tools for archive download instead of git clone")
}

func runDoctor(_ *cobra.Command, _ []string) error {
	requirements := psbody.RequiredTools(config.Global.SourceArchive)

	for _, req := range requirements {
		names := append([]string{req.Name}, req.Alternatives...)

		found := ""
		for _, name := range names {
			if installer.CheckToolAvailable(name) == nil {
				found = name
				break
			}
		}

		switch {
		case found != "":
			logging.Info("found %s (%s)", found, req.Purpose)
		case req.Optional:
			logging.Warn("missing optional tool %s (%s)", strings.Join(names, "/"), req.Purpose)
		default:
			logging.Error("missing required tool %s (%s)", strings.Join(names, "/"), req.Purpose)
		}
	}

	if err := installer.CheckRequiredTools(requirements); err != nil {
		return err
	}

	logging.Success("all required tools are available")
	return nil
}
