/*
Package snapshot persists a merged catalog so later runs can skip decoding
the game databases while they are unchanged.

A snapshot is a sorted table keyed by 64-bit fingerprints of
(kind, name) pairs. Values list every entry sharing a fingerprint, so
collisions never lose data.

    Table layout:
    +---------+---------+---------+-------------+--------------+
    | block 1 |   ...   | block n | block index | table footer |
    +---------+---------+---------+-------------+--------------+

    Block index:
    +----------------------------+--------------------+----------------------------------+--------------------------+--------+
    | last key block 1 (varint)  |  offset 2 (varint) | last key block 2 (varint,delta)  |  offset 2 (varint,delta) |   ...  |
    +----------------------------+--------------------+----------------------------------+--------------------------+--------+

    Table footer:
    +------------------------+------------------+
    | index offset (8 bytes) |  magic (8 bytes) |
    +------------------------+------------------+

    Block layout:
    +-----------+---------+-----------+---------------+---------------------------+
    | section 1 |   ...   | section n | section index | compression type (1-byte) |
    +-----------+---------+-----------+---------------+---------------------------+

    Section index:
    +----------------------------+-------+----------------------------+-------------------------------+
    | section offset 2 (4 bytes) |  ...  | section offset n (4 bytes) |  number of sections (4 bytes) |
    +----------------------------+-------+----------------------------+-------------------------------+

Sections hold key/value pairs. The first key of a section is stored in full,
subsequent keys as deltas:

    +----------------+----------------------+------------------+----------------------+-------+
    | key 1 (varint) | value len 1 (varint) | value 1 (varlen) | key 2 (varint,delta) |  ...  |
    +----------------+----------------------+------------------+----------------------+-------+

A value is a varint entry count followed by that many entries:

    +-------------+------+------------------------------------+
    | kind (byte) | name | kind specific fields (varint/text) |
    +-------------+------+------------------------------------+

Text fields are varint length prefixed.
*/
package snapshot
