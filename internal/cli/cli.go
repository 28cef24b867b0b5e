// Package cli implements the convshape command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/FlavioCFOliveira/convshape/internal/conf"
	"github.com/FlavioCFOliveira/convshape/internal/layer"
	"github.com/FlavioCFOliveira/convshape/internal/logutil"
	"github.com/FlavioCFOliveira/convshape/internal/net"
	"github.com/FlavioCFOliveira/convshape/internal/params"
)

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "convshape",
		Short: "Resolve shapes and parameters of convolution layer stacks",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true

			trace, _ := cmd.Flags().GetBool("trace")
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), logutil.Level(conf.Debug, trace)))
		},
	}

	rootCmd.PersistentFlags().Bool("trace", false, "Log every resolved layer")

	cobra.EnableCommandSorting = false

	resolveCmd := &cobra.Command{
		Use:   "resolve FILE",
		Short: "Print the output type of every layer in a stack",
		Args:  cobra.ExactArgs(1),
		RunE:  resolveHandler,
	}
	resolveCmd.Flags().Bool("padding", false, "Also print the padding of Same mode layers")

	paramsCmd := &cobra.Command{
		Use:   "params FILE",
		Short: "Print the parameter table of every layer in a stack",
		Args:  cobra.ExactArgs(1),
		RunE:  paramsHandler,
	}
	paramsCmd.Flags().String("dtype", "", "Data type used to size parameters: f32, f16 or bf16 (default from CONVSHAPE_DTYPE)")

	initCmd := &cobra.Command{
		Use:   "init FILE",
		Short: "Initialize the parameters of a stack",
		Args:  cobra.ExactArgs(1),
		RunE:  initHandler,
	}
	initCmd.Flags().Uint64("seed", 0, "Random seed (default from CONVSHAPE_SEED)")
	initCmd.Flags().Bool("zero", false, "Allocate parameters without initializing them")
	initCmd.Flags().StringP("output", "o", "", "Write the parameters to a file, as GGUF when it ends in .gguf and as a raw buffer otherwise")
	initCmd.Flags().String("dtype", "", "Data type of the written buffer: f32, f16 or bf16 (default from CONVSHAPE_DTYPE)")

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Print the environment settings",
		Args:  cobra.NoArgs,
		RunE:  envHandler,
	}

	rootCmd.AddCommand(resolveCmd, paramsCmd, initCmd, envCmd)

	return rootCmd
}

func newTable(cmd *cobra.Command, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func layerName(r net.Resolved) string {
	if name := r.Layer.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("layer%d", r.Index)
}

func dtypeFlag(cmd *cobra.Command) (params.DType, error) {
	s, _ := cmd.Flags().GetString("dtype")
	if s == "" {
		s = conf.DType
	}
	return params.ParseDType(s)
}

func resolveHandler(cmd *cobra.Command, args []string) error {
	s, err := conf.Load(args[0])
	if err != nil {
		return err
	}

	if err := s.Summary(cmd.OutOrStdout()); err != nil {
		return err
	}

	if padding, _ := cmd.Flags().GetBool("padding"); !padding {
		return nil
	}

	resolved, err := s.Resolve()
	if err != nil {
		return err
	}

	var data [][]string
	for _, r := range resolved {
		var pads [2]layer.Pad
		switch l := r.Layer.(type) {
		case layer.Deconv2D:
			if l.Mode() != layer.Same {
				continue
			}
			pads = l.SamePadding()
		case layer.Conv2D:
			if l.Mode() != layer.Same {
				continue
			}
			pads = l.SamePadding(r.In)
		default:
			continue
		}
		data = append(data, []string{layerName(r), formatPad(pads[0]), formatPad(pads[1])})
	}

	if len(data) == 0 {
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout())
	table := newTable(cmd, []string{"LAYER", "PAD H", "PAD W"})
	table.AppendBulk(data)
	table.Render()
	return nil
}

func formatPad(p layer.Pad) string {
	if p.Output > 0 {
		return fmt.Sprintf("output %d", p.Output)
	}
	return fmt.Sprintf("%d/%d", p.Begin, p.End)
}

func paramsHandler(cmd *cobra.Command, args []string) error {
	dt, err := dtypeFlag(cmd)
	if err != nil {
		return err
	}

	s, err := conf.Load(args[0])
	if err != nil {
		return err
	}

	resolved, err := s.Resolve()
	if err != nil {
		return err
	}

	var data [][]string
	var total int
	for _, r := range resolved {
		for _, p := range r.Params {
			off, _ := r.Params.Offset(p.Name)
			data = append(data, []string{
				layerName(r),
				p.Name,
				net.FormatShape(p.Shape),
				fmt.Sprint(r.Offset + off),
				fmt.Sprint(p.Size()),
				fmt.Sprint(p.Size() * dt.Size()),
			})
		}
		total += params.Bytes(r.Params, dt)
	}

	table := newTable(cmd, []string{"LAYER", "PARAM", "SHAPE", "OFFSET", "COUNT", "BYTES"})
	table.AppendBulk(data)
	table.Render()

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Total size: %d bytes (%s)\n", total, dt)
	return err
}

func initHandler(cmd *cobra.Command, args []string) error {
	dt, err := dtypeFlag(cmd)
	if err != nil {
		return err
	}

	seed := conf.Seed
	if cmd.Flags().Changed("seed") {
		seed, _ = cmd.Flags().GetUint64("seed")
	}
	zero, _ := cmd.Flags().GetBool("zero")

	s, err := conf.Load(args[0])
	if err != nil {
		return err
	}

	resolved, err := s.Resolve()
	if err != nil {
		return err
	}

	flat, views, err := s.InitParams(cmd.Context(), seed, !zero)
	if err != nil {
		return err
	}

	var data [][]string
	for i, v := range views {
		for _, p := range v.Table() {
			mean, std := stat.MeanStdDev(v.Get(p.Name), nil)
			if p.Size() < 2 {
				std = 0
			}
			data = append(data, []string{
				layerName(resolved[i]),
				p.Name,
				net.FormatShape(p.Shape),
				fmt.Sprintf("%.4g", mean),
				fmt.Sprintf("%.4g", std),
			})
		}
	}

	table := newTable(cmd, []string{"LAYER", "PARAM", "SHAPE", "MEAN", "STD"})
	table.AppendBulk(data)
	table.Render()

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		return nil
	}

	if strings.EqualFold(filepath.Ext(out), ".gguf") {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := s.WriteGGUF(f, views, dt); err != nil {
			return err
		}
		slog.Info("wrote parameters", "path", out, "format", "gguf", "dtype", dt, "values", len(flat))
		return f.Close()
	}

	b := params.Encode(flat, dt)
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return err
	}
	slog.Info("wrote parameters", "path", out, "dtype", dt, "values", len(flat), "bytes", len(b))
	return nil
}

func envHandler(cmd *cobra.Command, _ []string) error {
	vars := conf.AsMap()
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	slices.Sort(names)

	var data [][]string
	for _, k := range names {
		v := vars[k]
		data = append(data, []string{v.Name, fmt.Sprint(v.Value), v.Description})
	}

	table := newTable(cmd, []string{"NAME", "VALUE", "DESCRIPTION"})
	table.AppendBulk(data)
	table.Render()
	return nil
}
