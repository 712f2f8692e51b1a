// Package pressure finds the schedule of moves and valve openings that
// releases the most pressure from a tunnel network within a time budget.
//
// What is in the box?
//
//	• valve/    : the immutable network: valves, flow rates, directed tunnels
//	• distance/ : all-pairs shortest distances (Floyd–Warshall), collapsed to
//	              the valves worth visiting plus the start
//	• search/   : the optimizer: memoized recursion or branch-and-bound over
//	              (position, open set, time left), with an optional trace
//	• parse/    : the line format "Valve AA has flow rate=0; tunnels lead to …"
//	• report/   : per-minute tables in text, JSON or styled form
//	• store/    : fingerprinted run cache on SQLite or Redis
//	• cmd/pressure : the command-line front end
//
// Data flows strictly forward:
//
//	parse → valve → distance → search → report
//
// Quick ASCII example:
//
//	    AA(0)───BB(13)
//	     │        │
//	    DD(20)──CC(2)
//
// Starting at AA with six minutes, the best plan walks to DD, opens it, walks
// back through AA to BB, opens BB and waits out the last minute: 93 units.
//
//	go install github.com/katalvlaran/pressure/cmd/pressure@latest
package pressure
