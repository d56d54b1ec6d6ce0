// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"

	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/NVIDIA/namespace-node-affinity/pkg/controller"
	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
)

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Print the status last published by the leader",
		Description: `Reads the <app>-status ConfigMap written on every settled state
transition and prints it. The table format shows human readable names.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagFormat,
				Aliases: []string{"t"},
				Usage:   "Output format (table, yaml, json)",
				Value:   string(serializer.FormatTable),
			},
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			clients, err := clusterClients(cmd)
			if err != nil {
				return err
			}

			status, err := serializer.FromConfigMap[controller.Status](ctx, clients.Typed,
				cfg.Namespace, cfg.StatusConfigMapName(), controller.StatusKey)
			if err != nil {
				return err
			}

			if outFormat != serializer.FormatTable {
				return writeResult(ctx, outFormat, cmd.String(flagOutput), status)
			}

			w, closeFn, err := openOutput(cmd.String(flagOutput))
			if err != nil {
				return err
			}
			defer closeFn()
			return writeStatusTable(w, status)
		},
	}
}

// writeStatusTable prints status with display names for state and event.
func writeStatusTable(w io.Writer, s *controller.Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"State", displayName(string(s.State))},
		{"Message", s.Message},
		{"Event", displayName(string(s.Event))},
		{"Event ID", s.EventID},
		{"Code", s.Code},
		{"Updated", s.UpdatedAt.Format(time.RFC3339)},
	}
	for _, r := range rows {
		if r[1] == "" {
			r[1] = "-"
		}
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}

// displayName turns CamelCase and kebab-case identifiers into title-cased
// words: "BlockedOnError" is "Blocked On Error", "config-changed" is
// "Config Changed".
func displayName(s string) string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i, r := range s {
		switch {
		case r == '-' || r == '_' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0:
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return cases.Title(language.English).String(strings.ToLower(strings.Join(words, " ")))
}
