package config

// Schema is the JSON Schema document Config is validated against,
// written inline as a Go string constant next to the struct it
// describes.
const Schema = `{
    "type": "object",
    "description": "glowroot agent configuration.",
    "properties": {
        "fixedAggregationIntervalSeconds": {
            "description": "Width, in seconds, of each transaction aggregation window.",
            "type": "integer",
            "minimum": 1
        },
        "executorParallelism": {
            "description": "Number of flush worker goroutines. 0 or omitted picks a default from NumCPU.",
            "type": "integer",
            "minimum": 0
        },
        "queuePollGraceMillis": {
            "description": "Extra wait, in milliseconds, the consumer loop allows past a window boundary before closing it.",
            "type": "integer",
            "minimum": 0
        },
        "sink": {
            "description": "Which TransactionPointRepository implementation to wire the aggregator to.",
            "type": "string",
            "enum": ["nats", "sqlite"]
        },
        "natsSink": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "subjectPrefix": {"type": "string"}
            }
        },
        "sqliteSink": {
            "type": "object",
            "properties": {
                "path": {"type": "string"}
            }
        },
        "snapshot": {
            "type": "object",
            "properties": {
                "ratePerSecond": {"type": "number", "minimum": 0},
                "burst": {"type": "integer", "minimum": 0}
            }
        }
    },
    "additionalProperties": false
}`
