// Package harness runs ledger scenarios: scripted sequences of API payloads
// followed by tax position queries with expected answers.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: amendment_precedence
//	description: "An amendment replaces the sale from its own date"
//	steps:
//	  - transaction:            # a POST /transactions body
//	      eventType: SALE
//	      date: "2024-01-01T00:00:00Z"
//	      invoiceId: A1
//	      items:
//	        - { itemId: I1, cost: 1000, taxRate: 0.2 }
//	  - amendment:              # a PATCH /sale body
//	      date: "2024-02-01T00:00:00Z"
//	      invoiceId: A1
//	      itemId: I1
//	      cost: 1200
//	      taxRate: 0.2
//	  - transaction: { eventType: REFUND }
//	    reject: true            # must fail validation
//	queries:
//	  - date: "2024-01-15T00:00:00Z"
//	    taxPosition: 200
//	    owed: 200               # optional
//	    paid: 0                 # optional
//
// Steps go through the same validation and Writer as HTTP requests. Each
// scenario runs against a fresh in-memory SQLite ledger with sequential
// event ids and a stepping clock, so results can be compared against golden
// snapshots.
package harness
