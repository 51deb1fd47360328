/*
Package arz decodes string-indexed game databases (.arz, version 3) into
item and affix entities.

All integers are little-endian.

    Database layout:
    +--------+--------------------+--------------+--------------+
    | header | record payloads... | record table | string table |
    +--------+--------------------+--------------+--------------+

    Header (24 bytes):
    +--------------+-------------+---------------+-------------+---------------+---------------+--------------+
    | reserved (2) | version (2) | records start | records len | records count | strings start | strings size |
    +--------------+-------------+---------------+-------------+---------------+---------------+--------------+

    String table, repeated until strings start + strings size:
    +-------------+-----------+---------+-----+
    | group count | len (u32) | bytes   | ... |
    +-------------+-----------+---------+-----+

    Record header (variable):
    +--------------+---------+-----------+--------+-------------+---------------+-------------+
    | string index | tag len | tag bytes | offset | stored size | expanded size | 8 (skipped) |
    +--------------+---------+-----------+--------+-------------+---------------+-------------+

Record payload offsets are relative to the end of the header. A payload is
stored raw when both sizes match and as one LZ4 block otherwise. Expanded, it
is a run of typed field entries:

    +----------+-----------+------------------+----------------------+
    | type (2) | count (2) | key string index | count x 4-byte value |
    +----------+-----------+------------------+----------------------+

Type 1 values are float bits, type 2 values are string indexes and every
other type is a plain integer.
*/
package arz
