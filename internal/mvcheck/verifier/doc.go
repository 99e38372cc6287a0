/*
Package verifier checks that every replica of a materialized view converges to the base table.

The verifier runs passes forever: it waits for the settle delay, reads the whole base table at
QUORUM, reads the whole view from every node at ONE, and reports each node's result in cluster
order. Nothing inside the loop ends it; the operator stops the process once satisfied. Config.MaxPasses
and Config.ExitOnMatch exist for unattended runs and are off by default.

A failed view read affects only that node's result for the pass. A failed base table read aborts the
pass, since there's nothing to compare against, and the next pass runs after the usual delay.
*/
package verifier
