// SPDX-License-Identifier: MPL-2.0

package main

import (
	cmd "drun-cli/cmd/drun"
)

func main() {
	cmd.Execute()
}
