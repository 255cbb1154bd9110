package internal

import "time"

var OneSecond = 1 * time.Second
var FiveSeconds = 5 * time.Second
var TenSeconds = 10 * time.Second

// DefaultBatchSize is the pipeline flush threshold used by the bulk
// importers. High volume streams (user ratings) override it.
const DefaultBatchSize = 5000
