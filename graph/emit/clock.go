package emit

import "time"

// timeNow is indirected so tests can substitute a deterministic clock.
var timeNow = time.Now
