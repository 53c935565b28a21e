package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tesselslate/imitator/mouse"
)

var (
	mouseStep int
	mouseUp   bool
)

var mouseCmd = &cobra.Command{
	Use:   "mouse",
	Short: "Move the pointer and press buttons",
}

var mousePosCmd = &cobra.Command{
	Use:   "pos",
	Short: "Print the pointer position",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMouse()
		if err != nil {
			return err
		}
		x, y, err := m.Position()
		if err != nil {
			return err
		}
		sess.out.Plain(fmt.Sprintf("%d %d", x, y))
		return nil
	},
}

var mouseMoveCmd = &cobra.Command{
	Use:   "move X Y",
	Short: "Move the pointer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, y, err := parsePair(args)
		if err != nil {
			return err
		}
		m, err := newMouse()
		if err != nil {
			return err
		}
		return m.Move(x, y, mouseStep)
	},
}

// buttonCmd builds a command which runs fn with the button named by its
// argument, defaulting to the left button.
func buttonCmd(use, short string, fn func(*mouse.Mouse, mouse.Button) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [BUTTON]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := mouse.Left
			if len(args) == 1 {
				var err error
				if b, err = mouse.ParseButton(args[0]); err != nil {
					return err
				}
			}
			m, err := newMouse()
			if err != nil {
				return err
			}
			return fn(m, b)
		},
	}
}

var mouseWheelCmd = &cobra.Command{
	Use:   "wheel [CLICKS]",
	Short: "Scroll the wheel down (or up with --up)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 1
		if len(args) == 1 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil || n < 0 {
				return fmt.Errorf("invalid click count %q", args[0])
			}
		}
		m, err := newMouse()
		if err != nil {
			return err
		}
		return m.Wheel(mouseUp, n)
	},
}

var mouseDragCmd = &cobra.Command{
	Use:   "drag X1 Y1 X2 Y2 [BUTTON]",
	Short: "Drag the pointer from one point to another",
	Args:  cobra.RangeArgs(4, 5),
	RunE: func(cmd *cobra.Command, args []string) error {
		x1, y1, err := parsePair(args[0:2])
		if err != nil {
			return err
		}
		x2, y2, err := parsePair(args[2:4])
		if err != nil {
			return err
		}
		b := mouse.Left
		if len(args) == 5 {
			if b, err = mouse.ParseButton(args[4]); err != nil {
				return err
			}
		}
		m, err := newMouse()
		if err != nil {
			return err
		}
		return m.Drag(x1, y1, x2, y2, b, mouseStep)
	},
}

func init() {
	for _, c := range []*cobra.Command{mouseMoveCmd, mouseDragCmd} {
		c.Flags().IntVar(&mouseStep, "step", 0, "move in steps of this many pixels (0 warps directly)")
	}
	mouseWheelCmd.Flags().BoolVar(&mouseUp, "up", false, "scroll up")

	mouseCmd.AddCommand(
		mousePosCmd,
		mouseMoveCmd,
		buttonCmd("click", "Click a button", (*mouse.Mouse).Click),
		buttonCmd("down", "Press a button", (*mouse.Mouse).Down),
		buttonCmd("up", "Release a button", (*mouse.Mouse).Up),
		mouseWheelCmd,
		mouseDragCmd,
	)
	rootCmd.AddCommand(mouseCmd)
}

func newMouse() (*mouse.Mouse, error) {
	x, err := display()
	if err != nil {
		return nil, err
	}
	return mouse.New(x, sess.log), nil
}
