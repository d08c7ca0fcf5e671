// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/cmdtree/cmdtree/cmd/cmdtree"

func main() {
	cmd.Execute()
}
