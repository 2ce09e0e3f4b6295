/*
Package ddns keeps a single DNS "A" record pointed at the public IP address of the host.

Usage will always start with [ddns.New],
which takes the [Target] record and a [Provider] for the DNS provider hosting its zone.
[Client.Run] then performs an initial resync and reconciles the record on a fixed interval:
the record is only written when the resolved IP differs from the last known value,
and the record's identity and value are re-read from the provider every few ticks to heal from external edits.

[Client.Cycle] runs a single reconciliation step without a timer,
which is how callers that drive their own schedule (and tests) use the client.
*/
package ddns
