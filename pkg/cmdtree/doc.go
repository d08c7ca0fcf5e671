// SPDX-License-Identifier: MPL-2.0

// Package cmdtree embeds a directory-defined command tree in a Go program.
//
// A tree is a directory whose subdirectories are commands. Each command
// directory holds a command file and optional params, help and error files;
// the root holds global env, version, middleware and error files. Handler
// files ending in .cue are declarative; files ending in .go name handlers
// the embedding program registers in a Handlers table:
//
//	app, err := cmdtree.New(ctx, "./commands",
//		cmdtree.WithProgram("acme"),
//		cmdtree.WithHandlers(cmdtree.Handlers{
//			"deploy/command.go": cmdtree.Command(deploy),
//		}),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	os.Exit(app.Run(ctx, os.Args[1:]))
//
// The source may also be a manifest written by `cmdtree manifest`, which
// skips the directory scan.
package cmdtree
