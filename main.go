// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/hellodword/github-dashboard-feed/cmd/bundler"

func main() {
	cmd.Execute()
}
