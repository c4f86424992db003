package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft management commands",
	}

	cmd.AddCommand(newDraftListCmd())
	cmd.AddCommand(newDraftRecoveryCmd())
	cmd.AddCommand(newDraftGetCmd())
	cmd.AddCommand(newDraftCreateCmd())
	cmd.AddCommand(newDraftSaveCmd())
	cmd.AddCommand(newDraftRenameCmd())
	cmd.AddCommand(newDraftCompleteCmd())
	cmd.AddCommand(newDraftDeleteCmd())
	cmd.AddCommand(newDraftDiscardCmd())
	cmd.AddCommand(newDraftResolveCmd())

	return cmd
}

func newDraftListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resumable drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result DraftList

			if err := client.Get("/api/v1/drafts", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newDraftRecoveryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recovery",
		Short: "List locally cached drafts available for recovery",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result DraftList

			if err := client.Get("/api/v1/drafts/recovery", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newDraftGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Load a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result DraftDetail

			if err := client.Get(fmt.Sprintf("/api/v1/drafts/%s", args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newDraftCreateCmd() *cobra.Command {
	var name string
	var step int
	var form string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := saveRequest("", name, step, form)
			if err != nil {
				return err
			}

			var result SaveResult

			if err := client.Post("/api/v1/drafts", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Draft name (default: server default)")
	cmd.Flags().IntVar(&step, "step", 0, "Wizard step")
	cmd.Flags().StringVar(&form, "form", "{}", "Form contents as JSON")

	return cmd
}

func newDraftSaveCmd() *cobra.Command {
	var step int
	var form string

	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Save a draft's current contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := saveRequest(args[0], "", step, form)
			if err != nil {
				return err
			}

			var result SaveResult

			if err := client.Post("/api/v1/drafts", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&step, "step", 0, "Wizard step")
	cmd.Flags().StringVar(&form, "form", "{}", "Form contents as JSON")

	return cmd
}

func saveRequest(id, name string, step int, form string) (map[string]any, error) {
	if !json.Valid([]byte(form)) {
		return nil, fmt.Errorf("--form must be valid JSON")
	}

	req := map[string]any{
		"payload": map[string]any{
			"step": step,
			"form": json.RawMessage(form),
		},
	}
	if id != "" {
		req["id"] = id
	}
	if name != "" {
		req["name"] = name
	}
	return req, nil
}

func newDraftRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": args[1]}

			if err := client.Patch(fmt.Sprintf("/api/v1/drafts/%s/name", args[0]), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Renamed draft %s", args[0]))
			return nil
		},
	}
}

func newDraftCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a draft as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(fmt.Sprintf("/api/v1/drafts/%s/complete", args[0]), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Completed draft %s", args[0]))
			return nil
		},
	}
}

func newDraftDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(fmt.Sprintf("/api/v1/drafts/%s", args[0])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Deleted draft %s", args[0]))
			return nil
		},
	}
}

func newDraftDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <id>",
		Short: "Discard a recovered draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(fmt.Sprintf("/api/v1/drafts/%s?reason=discard", args[0])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Discarded draft %s", args[0]))
			return nil
		},
	}
}

func newDraftResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id> <keep-local|keep-remote|keep-both>",
		Short: "Resolve a sync conflict",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"resolution": args[1]}

			if err := client.Post(fmt.Sprintf("/api/v1/drafts/%s/resolve", args[0]), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Resolved conflict on draft %s (%s)", args[0], args[1]))
			return nil
		},
	}
}
