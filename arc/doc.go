/*
Package arc decodes tagged-record localization archives (.arc, version 3)
and extracts the item tag manifest they carry.

All integers are little-endian.

    Archive layout:
    +--------+------------+------------+--------------+
    | header | part table | name table | record table |
    +--------+------------+------------+--------------+

    Header (28 bytes):
    +----------+---------+------------+------------+----------------+----------------+-------------+
    | reserved | version | file count | part count | part table len | name table len | part offset |
    +----------+---------+------------+------------+----------------+----------------+-------------+

    Part (12 bytes):
    +--------+-------------+---------------+
    | offset | stored size | expanded size |
    +--------+-------------+---------------+

The name table follows the part table and holds one null-terminated name per
file. The record table follows the name table:

    Record (40 bytes):
    +------+--------+--------+----------+---------+-----------------+------------+------------+----------+-------------+
    | type | offset | stored | expanded | unknown | filetime (8)    | part count | first part | name len | name offset |
    +------+--------+--------+----------+---------+-----------------+------------+------------+----------+-------------+

A file's content is the concatenation of its parts. A part is stored raw
when its stored and expanded sizes match and as one LZ4 block otherwise.
*/
package arc
