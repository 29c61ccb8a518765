// fileelf - an access-weighted file locator daemon.
package main

import "github.com/fileelf/fileelf/cmd"

func main() {
	cmd.Execute()
}
