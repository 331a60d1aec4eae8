/*
Package store provides the ordered byte store and the KV capability
abstraction that every command handler in pkg/command is written
against.

# Physical key schema

All logical state is kept in one bbolt bucket under reserved byte
prefixes, so that a single prefix scan or a single bbolt transaction
can reach every physical key belonging to a logical key:

	string:<K>                         -> value bytes
	hash:<K>:<field>                   -> value bytes
	list:data:<K>:<8-byte seq>         -> value bytes
	list:meta:<K>:head                 -> 8-byte big-endian i64
	list:meta:<K>:tail                 -> 8-byte big-endian i64
	set:<K>:<member>                   -> empty
	expire:<K>                         -> 8-byte big-endian u64 (unix ms)

# KV capability

Command handlers are written against the KV interface, never against
*bbolt.DB directly, so the same handler runs both outside a
transaction (DirectKV, one bbolt transaction per call) and inside one
(TxKV, backed by a single outer bbolt.Tx opened for MULTI/EXEC). A
handler that must group several physical writes into one atomic unit
without an outer EXEC (list push/pop, INCR/DECR) asks the KV for its
optional TxOpener capability and runs the group inside an inner bbolt
transaction; that capability is absent on TxKV, since any write it
performs is already part of the outer transaction.
*/
package store
