// This program performs operator tasks for the reward service.
package main

import "github.com/ecoride/rewards/app/tooling/rewardctl/cmd"

func main() {
	cmd.Execute()
}
