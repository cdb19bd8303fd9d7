/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

package version

var banner = []string{
	// small
	`
 _______          _________          _______  _______ _________ _______
(  ___  )|\     /|\__   __/|\     /|(  ____ \(  ____ \\__   __/(  ____ \
| (   ) || )   ( |   ) (   | )   ( || (    \/| (    \/   ) (   | (    \/
| (___) || |   | |   | |   | |___| || |      | (_____    | |   | (__
|  ___  || |   | |   | |   |  ___  || |      (_____  )   | |   |  __)
| (   ) || |   | |   | |   | (   ) || |            ) |   | |   | (
| )   ( || (___) |   | |   | )   ( || (____/\/\____) |   | |   | (____/\
|/     \|(_______)   )_(   |/     \|(_______/\_______)   )_(   (_______/
`,
	// block
	`
    _          _______ _    _  _____       _______ _______
   / \        |__   __| |  | |/ ____|     / ____\ \__   __|/ ____|
  / _ \   _ __   | |  | |__| | |  __     | |  __  | | | |  | |  __
 / ___ \ | '_ \  | |  |  __  | | |_ |    | | |_ | | | | |  | | |_ |
/_/   \_\| |_) |  | |  | |  | | |__| |    | |__| | | | | |  | |__| |
          | .__/  |_|  |_|  |_|\_____|     \_____| |_| |_|   \_____|
          |_|
`,
}

// GetBanner returns the startup banner printed before the process reads
// its config, so an operator staring at a terminal knows what bound.
func GetBanner() *string {
	return &banner[1]
}
