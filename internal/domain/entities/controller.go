package entities

import "github.com/spf13/cobra"

// ControllerBind is the cobra metadata a controller exposes.
type ControllerBind struct {
	Use   string
	Short string
	Long  string
}

// Controller is one sub-command of the CLI. The set of controllers is fixed at
// compile time (see controllers.NewControllers).
type Controller interface {
	GetBind() ControllerBind
	Execute(cmd *cobra.Command, args []string) error
}

// FlagController is implemented by controllers that contribute their own flags.
type FlagController interface {
	AddFlags(cmd *cobra.Command)
}
