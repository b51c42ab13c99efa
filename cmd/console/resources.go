package main

import (
	"github.com/agentoven/agentoven/console/internal/console"
	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/internal/view"

	"github.com/spf13/cobra"
)

// run builds the pages, runs fn with them and closes them afterwards.
func run(fn func(c *console.Console) error) error {
	c, err := pages()
	if err != nil {
		return fail(err)
	}
	defer c.Close()
	return fail(fn(c))
}

// ── users ────────────────────────────────────────────────────

func usersCmd() *cobra.Command {
	var query, sortMode string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users, or manage one with a subcommand",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				if err := c.Users.Load(cmd.Context()); err != nil {
					return err
				}
				c.Users.Search(query, view.ParseSortMode(sortMode))
				return printJSON(c.Users.List())
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name or username")
	cmd.Flags().StringVar(&sortMode, "sort", string(view.SortAlpha), "alpha or by-group")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <username>",
		Short: "Show a user and its role assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				if err := c.Users.Load(cmd.Context()); err != nil {
					return err
				}
				u, err := c.Users.Select(args[0])
				if err != nil {
					return err
				}
				roles, err := c.Users.Roles()
				if err != nil {
					return err
				}
				return printJSON(map[string]interface{}{"user": u, "roles": roles})
			})
		},
	})

	for _, assign := range []bool{true, false} {
		use, short := "assign <username> <role>", "Grant a role"
		if !assign {
			use, short = "unassign <username> <role>", "Revoke a role"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(c *console.Console) error {
					if err := c.Users.Load(cmd.Context()); err != nil {
						return err
					}
					if _, err := c.Users.Select(args[0]); err != nil {
						return err
					}
					var err error
					if assign {
						err = c.Users.AssignRole(cmd.Context(), args[1])
					} else {
						err = c.Users.RemoveRole(cmd.Context(), args[1])
					}
					if err != nil {
						return err
					}
					roles, err := c.Users.Roles()
					if err != nil {
						return err
					}
					return printJSON(roles)
				})
			},
		})
	}

	del := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user (needs --yes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				if err := c.Users.Load(cmd.Context()); err != nil {
					return err
				}
				return c.Users.Delete(approve(cmd.Context()), args[0])
			})
		},
	}
	del.Flags().BoolVarP(&assumeYes, "yes", "y", false, "confirm the deletion")
	cmd.AddCommand(del)
	return cmd
}

// ── agents ───────────────────────────────────────────────────

func agentsCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents, or manage one with a subcommand",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				if err := c.Agents.Load(cmd.Context()); err != nil {
					return err
				}
				c.Agents.Search(query)
				return printJSON(c.Agents.List())
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by agent code or model")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <agent-code>",
		Short: "Show an agent's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				if err := c.Agents.Load(cmd.Context()); err != nil {
					return err
				}
				a, err := c.Agents.Select(args[0])
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	})

	var model, prompt string
	create := &cobra.Command{
		Use:   "create <agent-code>",
		Short: "Create an agent with the default configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				form := mutation.NewAgentForm()
				form["agent_code"] = args[0]
				if model != "" {
					form["model"] = model
				}
				if prompt != "" {
					form["system_prompt"] = prompt
				}
				return c.Agents.Create(cmd.Context(), form)
			})
		},
	}
	create.Flags().StringVar(&model, "model", "", "model name")
	create.Flags().StringVar(&prompt, "system-prompt", "", "system prompt")
	cmd.AddCommand(create)

	del := &cobra.Command{
		Use:   "delete <agent-code>",
		Short: "Delete an agent (needs --yes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				if err := c.Agents.Load(cmd.Context()); err != nil {
					return err
				}
				return c.Agents.Delete(approve(cmd.Context()), args[0])
			})
		},
	}
	del.Flags().BoolVarP(&assumeYes, "yes", "y", false, "confirm the deletion")
	cmd.AddCommand(del)
	return cmd
}

// ── tools ────────────────────────────────────────────────────

func toolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools [agent-code]",
		Short: "List the tool registry, or one agent's tools",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				if err := c.Tools.Load(cmd.Context()); err != nil {
					return err
				}
				if len(args) == 0 {
					return printJSON(c.Tools.Registry())
				}
				if err := c.Tools.SelectAgent(cmd.Context(), args[0]); err != nil {
					return err
				}
				states, err := c.Tools.List()
				if err != nil {
					return err
				}
				return printJSON(states)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <agent-code> <tool-id>",
		Short: "Enable or disable a tool for an agent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				if err := c.Tools.Load(cmd.Context()); err != nil {
					return err
				}
				if err := c.Tools.SelectAgent(cmd.Context(), args[0]); err != nil {
					return err
				}
				enabled, err := c.Tools.Toggle(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				return printJSON(map[string]interface{}{"tool_id": args[1], "enabled": enabled})
			})
		},
	})
	return cmd
}

// ── logs & usage ─────────────────────────────────────────────

func logsCmd() *cobra.Command {
	var user string
	var more int
	cmd := &cobra.Command{
		Use:   "logs [agent-code]",
		Short: "Show an agent's logs, optionally for one user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				if err := c.Logs.Load(cmd.Context()); err != nil {
					return err
				}
				if len(args) == 1 {
					if err := c.Logs.SelectAgent(cmd.Context(), args[0]); err != nil {
						return err
					}
				}
				if err := c.Logs.SelectUser(cmd.Context(), user); err != nil {
					return err
				}
				page := c.Logs.Page()
				for i := 0; i < more && page.CanLoadMore; i++ {
					page = c.Logs.More()
				}
				return printJSON(page)
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "only entries of this username")
	cmd.Flags().IntVar(&more, "more", 0, "extra pages to show")
	return cmd
}

func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show the dashboard summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(c *console.Console) error {
				if err := c.Dashboard.Load(cmd.Context()); err != nil {
					return err
				}
				return printJSON(c.Dashboard.View())
			})
		},
	}
}
