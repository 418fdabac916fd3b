/*
Package extsort implements an external sort of fixed-size binary records,
using replacement selection to generate sorted runs which are far larger than
the in-memory working set, followed by a k-way merge.

Data Structure Documentation

Record

A record is a 16-byte entry of an opaque 8-byte tag followed by an 8-byte
floating-point key, both big-endian. Records are ordered by key only.

    Record layout:
    +----------------------+-----------------------------+
    | tag (int64, 8 bytes) | key (float64 bits, 8 bytes) |
    +----------------------+-----------------------------+

Block

A block is the unit of file I/O and holds exactly 512 records (8192 bytes).
A file is a sequence of whole blocks, a file which is not a multiple of
8192 bytes in size is malformed.

    File layout:
    +---------+---------+---------+
    | block 1 |   ...   | block n |
    +---------+---------+---------+

    Block layout:
    +----------+---------+------------+
    | record 1 |   ...   | record 512 |
    +----------+---------+------------+

Run file

Runs are written back-to-back into a single run file, so that run boundaries
do not need to align with blocks. Each run is described by its record
offset and length.

    Run file layout:
    +-------------------+------------------------+---------+-------------------+
    | run 1 (sorted)    | run 2 (sorted)         |   ...   | run k (sorted)    |
    +-------------------+------------------------+---------+-------------------+

Heap

The run generator holds a fixed-capacity min-heap, split into an active
region ordering the current run and a deactivated region of records kept
aside for the next one.

    +----------------------+-----------------------+--------+
    | active [0, n)        | deactivated [n, n+d)  | unused |
    +----------------------+-----------------------+--------+
*/
package extsort
