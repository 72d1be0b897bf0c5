package jobspec

import "github.com/santhosh-tekuri/jsonschema/v5"

const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": ["jobs"],
  "properties": {
    "jobs": {
      "type": "array",
      "items": {"$ref": "#/$defs/job"}
    }
  },
  "$defs": {
    "nonEmpty": {"type": "string", "minLength": 1},
    "positiveDays": {"type": ["string", "integer"], "pattern": "^[1-9][0-9]*$", "minimum": 1},
    "date": {"type": "string", "pattern": "^(\\d{4}-\\d{2}-\\d{2})?$"},
    "job": {
      "type": "object",
      "additionalProperties": false,
      "required": ["name", "type"],
      "properties": {
        "name": {"$ref": "#/$defs/nonEmpty"},
        "type": {"enum": ["binance_klines", "binance_price", "coingecko_market_chart", "coingecko_price", "coingecko_daily", "yahoo_close"]},
        "symbol": {"type": "string"},
        "coin_id": {"type": "string"},
        "currency": {"type": "string"},
        "start_date": {"$ref": "#/$defs/date"},
        "end_date": {"$ref": "#/$defs/date"},
        "days": {"type": ["string", "integer"]},
        "asset": {"type": "string"}
      },
      "allOf": [
        {
          "if": {"properties": {"type": {"const": "binance_klines"}}},
          "then": {"required": ["symbol", "start_date"], "properties": {"symbol": {"$ref": "#/$defs/nonEmpty"}, "start_date": {"$ref": "#/$defs/nonEmpty"}}}
        },
        {
          "if": {"properties": {"type": {"const": "binance_price"}}},
          "then": {"required": ["symbol"], "properties": {"symbol": {"$ref": "#/$defs/nonEmpty"}}}
        },
        {
          "if": {"properties": {"type": {"enum": ["coingecko_market_chart", "coingecko_price"]}}},
          "then": {"required": ["coin_id"], "properties": {"coin_id": {"$ref": "#/$defs/nonEmpty"}}}
        },
        {
          "if": {"properties": {"type": {"const": "coingecko_daily"}}},
          "then": {"required": ["days"], "properties": {"days": {"$ref": "#/$defs/positiveDays"}}}
        },
        {
          "if": {"properties": {"type": {"const": "yahoo_close"}}},
          "then": {"required": ["symbol", "start_date"], "properties": {"symbol": {"$ref": "#/$defs/nonEmpty"}, "start_date": {"$ref": "#/$defs/nonEmpty"}}}
        }
      ]
    }
  }
}`

var fileSchema = jsonschema.MustCompileString("jobs.schema.json", schemaJSON)
