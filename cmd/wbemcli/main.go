// Package main provides wbemcli, a command-line WBEM client exercising
// GetInstance, EnumerateInstances, and ExecQuery against a CIM-XML
// server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rob-gra/go-wbem/cim"
	"github.com/rob-gra/go-wbem/wbem"
)

type cliConfig struct {
	url            string
	namespace      string
	user           string
	pass           string
	noVerification bool
	timeout        time.Duration
}

func (c *cliConfig) registerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.url, "url", "", "WBEM server URL, e.g. https://host:5989 (required)")
	fs.StringVar(&c.namespace, "namespace", "root/cimv2", "target CIM namespace")
	fs.StringVar(&c.user, "user", "", "HTTP basic-auth username")
	fs.StringVar(&c.pass, "pass", "", "HTTP basic-auth password")
	fs.BoolVar(&c.noVerification, "no-verify", false, "skip TLS certificate verification")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "per-operation timeout")
}

func (c *cliConfig) connection() (*wbem.Connection, error) {
	cfg := wbem.DefaultConfig(c.url)
	cfg.DefaultNamespace = c.namespace
	cfg.NoVerification = c.noVerification
	cfg.Timeout = c.timeout
	if c.user != "" {
		cfg.Credentials = &wbem.Credentials{User: c.user, Pass: c.pass}
	}
	return wbem.NewConnection(cfg)
}

func main() {
	cfg := &cliConfig{}

	rootCmd := &cobra.Command{
		Use:           "wbemcli",
		Short:         "Query CIM objects over WBEM/CIM-XML",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().SortFlags = false
	cfg.registerFlags(rootCmd.PersistentFlags())
	_ = rootCmd.MarkPersistentFlagRequired("url")

	rootCmd.AddCommand(
		newGetInstanceCmd(cfg),
		newEnumerateInstancesCmd(cfg),
		newExecQueryCmd(cfg),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wbemcli: %v\n", err)
		os.Exit(1)
	}
}

func newGetInstanceCmd(cfg *cliConfig) *cobra.Command {
	var className string
	var keys []string

	cmd := &cobra.Command{
		Use:   "get-instance --class <name> --key Name=Fritz [--key ...]",
		Short: "Retrieve one instance by its keybindings",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			conn, err := cfg.connection()
			if err != nil {
				return err
			}
			path := cim.NewInstanceName(className)
			for _, kv := range keys {
				name, value, err := splitKeyValue(kv)
				if err != nil {
					return err
				}
				path.SetKeybinding(name, cim.NewScalar(cim.TypeString, value))
			}

			ctx, cancel := context.WithTimeout(cobraCmd.Context(), cfg.timeout)
			defer cancel()
			inst, err := conn.GetInstance(ctx, cfg.namespace, path, false, true, false, nil)
			if err != nil {
				return err
			}
			return printJSON(cobraCmd, instanceSummary(inst))
		},
	}
	cmd.Flags().StringVar(&className, "class", "", "CIM class name (required)")
	cmd.Flags().StringArrayVar(&keys, "key", nil, "keybinding Name=Value, repeatable")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func newEnumerateInstancesCmd(cfg *cliConfig) *cobra.Command {
	var className string
	var deep bool

	cmd := &cobra.Command{
		Use:   "enumerate-instances --class <name>",
		Short: "Enumerate every instance of a class",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			conn, err := cfg.connection()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cobraCmd.Context(), cfg.timeout)
			defer cancel()

			insts, err := conn.EnumerateInstances(ctx, cfg.namespace, className, deep, false, true, false, nil)
			if err != nil {
				return err
			}
			out := make([]map[string]interface{}, len(insts))
			for i, inst := range insts {
				out[i] = instanceSummary(inst)
			}
			return printJSON(cobraCmd, out)
		},
	}
	cmd.Flags().StringVar(&className, "class", "", "CIM class name (required)")
	cmd.Flags().BoolVar(&deep, "deep", false, "include instances of subclasses")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func newExecQueryCmd(cfg *cliConfig) *cobra.Command {
	var query, language string

	cmd := &cobra.Command{
		Use:   "exec-query --query <text>",
		Short: "Evaluate a query against the target namespace",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			conn, err := cfg.connection()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cobraCmd.Context(), cfg.timeout)
			defer cancel()

			insts, err := conn.ExecQuery(ctx, cfg.namespace, query, language)
			if err != nil {
				return err
			}
			out := make([]map[string]interface{}, len(insts))
			for i, inst := range insts {
				out[i] = instanceSummary(inst)
			}
			return printJSON(cobraCmd, out)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "query text (required)")
	cmd.Flags().StringVar(&language, "language", "WQL", "query language (WQL, CQL, ...)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func splitKeyValue(kv string) (name, value string, err error) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("wbemcli: malformed --key %q, want Name=Value", kv)
}

func instanceSummary(inst *cim.Instance) map[string]interface{} {
	out := map[string]interface{}{"className": inst.ClassName}
	props := map[string]interface{}{}
	for _, p := range inst.Properties.Slice() {
		if p.Value.IsNull() {
			props[p.PropName] = nil
			continue
		}
		if p.Value.IsArray() {
			props[p.PropName] = p.Value.Array()
			continue
		}
		props[p.PropName] = p.Value.Scalar()
	}
	out["properties"] = props
	return out
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
