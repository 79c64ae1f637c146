// Package harness runs YAML scenarios against services.
//
// A scenario calls registered services in order, checks each result
// against an expect clause and then evaluates assertions over the combined
// trace.
//
// # Scenario Format
//
//	name: place_order
//	description: "Orders with a valid cart succeed"
//	steps:
//	  - call: PlaceOrder
//	    args: { ids: ["a", "b"] }
//	    expect:
//	      success: true
//	      outputs: { first_id: "a" }
//	  - call: PlaceOrder
//	    args: { ids: "a" }
//	    expect:
//	      failure: { type: input, message: "[PlaceOrder] Wrong type of input `ids`, expected `Array`, got `String`" }
//	assertions:
//	  - type: trace_contains
//	    kind: action_completed
//	    action: assign_first_id
//	  - type: trace_order
//	    actions: [assign_first_id, create_order]
//	  - type: trace_count
//	    kind: started
//	    count: 2
//	  - type: journal_count
//	    service: PlaceOrder
//	    count: 1
//
// # Assertion Types
//
//   - trace_contains: an event with the given kind and/or action exists
//   - trace_order: actions completed in the given order
//   - trace_count: exactly N events match kind and/or action
//   - journal_count: the idempotency journal holds N entries for a service
//
// Arguments are normalized the same way JSON arguments are (integers become
// int64) and values are compared by their canonical JSON encoding, so
// `total: 10` in YAML matches an int64 or float64 output of 10.
package harness
